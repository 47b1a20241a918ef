package resilience

import (
	"context"
	"time"
)

// Executor composes multiple resilience patterns.
type Executor struct {
	rateLimiter    *RateLimiter
	limiter        *Limiter
	retry          *Retry
	circuitBreaker *CircuitBreaker
	deadline       *Deadline
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithLimiter bounds the executor's concurrency with l. A limiter may be
// shared between executors.
func WithLimiter(l *Limiter) ExecutorOption {
	return func(e *Executor) {
		e.limiter = l
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithDeadline applies a per-attempt deadline.
func WithDeadline(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.deadline = NewDeadline(DeadlineConfig{Timeout: timeout})
	}
}

// WithDeadlineConfig applies a per-attempt deadline with custom config.
func WithDeadlineConfig(d *Deadline) ExecutorOption {
	return func(e *Executor) {
		e.deadline = d
	}
}

// Execute runs the operation through all configured resilience patterns.
//
// The execution order, outermost first, is:
// 1. Rate Limiter (if configured) - limits request rate
// 2. Limiter (if configured) - holds one slot for the whole retry sequence
// 3. Retry (if configured) - retries transient failures
// 4. Circuit Breaker (if configured) - sees every attempt
// 5. Deadline (if configured) - bounds each attempt
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	// Innermost first.
	if e.deadline != nil {
		execute = wrap(e.deadline, execute)
	}
	if e.circuitBreaker != nil {
		execute = wrap(e.circuitBreaker, execute)
	}
	if e.retry != nil {
		execute = wrap(e.retry, execute)
	}
	if e.limiter != nil {
		execute = wrap(e.limiter, execute)
	}
	if e.rateLimiter != nil {
		execute = wrap(e.rateLimiter, execute)
	}

	return callOp(ctx, execute)
}

func wrap(p Pattern, inner func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return p.Execute(ctx, inner)
	}
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Limiter returns the configured limiter, or nil.
func (e *Executor) Limiter() *Limiter {
	return e.limiter
}
