package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonwraymond/toolguard/failure"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit waits for a token instead of returning an error.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 1 second
	MaxWait time.Duration

	// Clock is read by Allow, AllowN and Tokens. Wait uses the bucket's own
	// timer and always follows the wall clock.
	// Default: SystemClock()
	Clock Clock
}

// RateLimiter implements a token bucket rate limiter. Rejections are
// transient RATE_LIMITED failures, so a surrounding retry may try again.
type RateLimiter struct {
	config  RateLimiterConfig
	clock   Clock
	limiter atomic.Pointer[rate.Limiter]
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	rl := &RateLimiter{config: config, clock: clockOrSystem(config.Clock)}
	rl.limiter.Store(rl.newBucket())
	return rl
}

func (rl *RateLimiter) newBucket() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst)
}

// Allow reports whether one operation may proceed now.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN reports whether n operations may proceed now.
func (rl *RateLimiter) AllowN(n int) bool {
	return rl.limiter.Load().AllowN(rl.clock.Now(), n)
}

// Wait blocks until a token is available, MaxWait elapses, or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
	defer cancel()

	err := rl.limiter.Load().WaitN(waitCtx, n)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// WaitN fails fast when the wait would outlast the deadline, and
	// reports n > burst the same way.
	return rl.limited(err)
}

// Execute runs the operation if allowed by the rate limit.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return rl.limited(nil)
	}

	return callOp(ctx, op)
}

func (rl *RateLimiter) limited(cause error) error {
	opts := []failure.Option{
		failure.WithCode(failure.CodeRateLimited),
		failure.WithMeta("rate", rl.config.Rate),
		failure.WithMeta("burst", rl.config.Burst),
	}
	if cause != nil && !errors.Is(cause, context.DeadlineExceeded) {
		opts = append(opts, failure.WithCause(cause))
	}
	return failure.New(failure.KindTransient, "rate limit exceeded", opts...)
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Load().TokensAt(rl.clock.Now())
}

// Reset resets the rate limiter to full capacity.
func (rl *RateLimiter) Reset() {
	rl.limiter.Store(rl.newBucket())
}

// Config returns the rate limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}
