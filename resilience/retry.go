package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/toolguard/failure"
)

// RetryEvent describes a retry that is about to happen.
type RetryEvent struct {
	// Attempt is the 1-indexed retry number.
	Attempt int
	// Delay is how long the executor will wait before the attempt.
	Delay time.Duration
	// Err is the failure that triggered the retry.
	Err error
}

// RetryConfig configures the retry behavior.
//
// Unlike the other configs, the zero value is meaningful: zero Retries means
// a single attempt. Start from DefaultRetryConfig for the usual defaults.
type RetryConfig struct {
	// Retries is the number of additional attempts after the first.
	// Default (DefaultRetryConfig): 3
	Retries int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 2s
	MaxDelay time.Duration

	// Jitter scales each delay into [delay/2, delay].
	// Default (DefaultRetryConfig): true
	Jitter bool

	// Rand returns a value in [0, 1) used for jitter.
	// Default: math/rand/v2.Float64
	Rand func() float64

	// RetryIf overrides the transient classification. Circuit-open and
	// aggregate failures are never retried, whatever RetryIf says.
	// Default: failure.IsTransient
	RetryIf func(err error) bool

	// OnRetry is called before each retry wait. It must not block.
	OnRetry func(RetryEvent)

	// Clock drives the waits between attempts.
	// Default: SystemClock()
	Clock Clock
}

// DefaultRetryConfig returns the default retry configuration.
// Retries: 3, BaseDelay: 100ms, MaxDelay: 2s, Jitter: true
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries:   3,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  2 * time.Second,
		Jitter:    true,
	}
}

// Retry implements retry with exponential backoff.
type Retry struct {
	config RetryConfig
	clock  Clock
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.Retries < 0 {
		config.Retries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}

	return &Retry{config: config, clock: clockOrSystem(config.Clock)}
}

// Execute runs op until it succeeds, fails permanently, or the retries are
// used up. Terminal failures are wrapped in a RETRIES_EXHAUSTED failure whose
// cause is the last failure observed and whose meta records the attempt.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := 0

	for {
		err := callOp(ctx, op)
		if err == nil {
			return nil
		}

		attempt++

		if !r.shouldRetry(err) || attempt > r.config.Retries {
			return r.exhausted(err, attempt)
		}

		delay := ComputeDelay(attempt, r.config)

		if r.config.OnRetry != nil {
			r.config.OnRetry(RetryEvent{Attempt: attempt, Delay: delay, Err: err})
		}

		select {
		case <-ctx.Done():
			cause := fmt.Errorf("%w (last failure: %w)", ctx.Err(), err)
			return r.exhausted(cause, attempt, failure.WithMeta("last_error", err.Error()))
		case <-r.clock.After(delay):
		}
	}
}

func (r *Retry) shouldRetry(err error) bool {
	switch failure.KindOf(err) {
	case failure.KindCircuitOpen, failure.KindAggregate:
		return false
	}
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return failure.IsTransient(err)
}

func (r *Retry) exhausted(cause error, attempt int, opts ...failure.Option) *failure.Failure {
	opts = append([]failure.Option{
		failure.WithCode(failure.CodeRetriesExhausted),
		failure.WithMeta("attempt", attempt),
		failure.WithMeta("retries", r.config.Retries),
	}, opts...)
	return failure.Wrap(failure.KindPermanent, cause, "operation failed after retries", opts...)
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
