// Package health reports the health of components protected by the
// resilience package.
//
// A Checker reports a Result with a Status of Healthy, Degraded or
// Unhealthy. BreakerChecker and LimiterChecker read the state of a circuit
// breaker and a concurrency limiter; CheckerFunc adapts any function.
//
// # Aggregating Health Checks
//
// Aggregator runs its checkers as one batch through resilience.RunAll, each
// bounded by a resilience.Deadline. A check that times out or panics is
// reported as unhealthy instead of failing the batch:
//
//	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
//	agg.Register("users-circuit", health.NewBreakerChecker(cb))
//	agg.Register("workers", health.NewLimiterChecker("workers", limiter))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
package health
