// Package observe provides observability primitives for protected operations.
//
// It is a pure instrumentation library: it never retries, limits, or
// short-circuits anything itself. The resilience package exposes hooks
// (OnRetry, OnStateChange) and this package supplies implementations that
// turn them into spans, metrics, and structured log lines. Terminal failures
// can be handed to a Reporter, which logs their serialized cause chain.
package observe
