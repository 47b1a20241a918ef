package config

import (
	"github.com/jonwraymond/toolguard/resilience"
)

type buildOptions struct {
	onRetry       func(resilience.RetryEvent)
	onStateChange func(from, to resilience.State)
	clock         resilience.Clock
	limiter       *resilience.Limiter
}

// BuildOption customizes the patterns built by NewExecutor.
type BuildOption func(*buildOptions)

// WithRetryHook installs fn as the retry callback.
func WithRetryHook(fn func(resilience.RetryEvent)) BuildOption {
	return func(o *buildOptions) {
		o.onRetry = fn
	}
}

// WithStateChangeHook installs fn as the circuit breaker callback.
func WithStateChangeHook(fn func(from, to resilience.State)) BuildOption {
	return func(o *buildOptions) {
		o.onStateChange = fn
	}
}

// WithClock drives every built pattern from clock.
func WithClock(clock resilience.Clock) BuildOption {
	return func(o *buildOptions) {
		o.clock = clock
	}
}

// WithSharedLimiter makes the executor use l instead of building its own
// limiter from the limiter section.
func WithSharedLimiter(l *resilience.Limiter) BuildOption {
	return func(o *buildOptions) {
		o.limiter = l
	}
}

// NewExecutor builds the composition described by c: rate limiter (when a
// rate is set), limiter, retry, circuit breaker and per-attempt deadline.
func (c *Config) NewExecutor(opts ...BuildOption) *resilience.Executor {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	rc := c.RetryConfig()
	rc.OnRetry = o.onRetry
	rc.Clock = o.clock

	cbc := c.CircuitBreakerConfig()
	cbc.OnStateChange = o.onStateChange
	cbc.Clock = o.clock

	dc := c.DeadlineConfig()
	dc.Clock = o.clock

	limiter := o.limiter
	if limiter == nil {
		limiter = resilience.NewLimiter(c.LimiterConfig())
	}

	execOpts := []resilience.ExecutorOption{
		resilience.WithLimiter(limiter),
		resilience.WithRetry(resilience.NewRetry(rc)),
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(cbc)),
		resilience.WithDeadlineConfig(resilience.NewDeadline(dc)),
	}
	if c.RateLimit.Enabled() {
		rlc := c.RateLimiterConfig()
		rlc.Clock = o.clock
		execOpts = append(execOpts, resilience.WithRateLimiter(resilience.NewRateLimiter(rlc)))
	}
	return resilience.NewExecutor(execOpts...)
}
