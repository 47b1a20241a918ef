package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/toolguard/failure"
)

func TestNewExecutor(t *testing.T) {
	e := NewExecutor()

	if e.circuitBreaker != nil || e.retry != nil || e.rateLimiter != nil || e.limiter != nil || e.deadline != nil {
		t.Error("Default executor should not have any pattern configured")
	}
}

func TestExecutor_WithOptions(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	retry := NewRetry(RetryConfig{})
	rl := NewRateLimiter(RateLimiterConfig{})
	l := NewLimiter(LimiterConfig{})

	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(retry),
		WithRateLimiter(rl),
		WithLimiter(l),
		WithDeadline(time.Second),
	)

	if e.CircuitBreaker() != cb {
		t.Error("CircuitBreaker not set")
	}
	if e.retry != retry {
		t.Error("Retry not set")
	}
	if e.rateLimiter != rl {
		t.Error("RateLimiter not set")
	}
	if e.Limiter() != l {
		t.Error("Limiter not set")
	}
	if e.deadline == nil || e.deadline.Config().Timeout != time.Second {
		t.Error("Deadline not set")
	}
}

func TestExecutor_ExecuteNoPatterns(t *testing.T) {
	e := NewExecutor()

	executed := false
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		executed = true
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if !executed {
		t.Error("Operation was not executed")
	}
}

func TestExecutor_DeadlineIsPerAttempt(t *testing.T) {
	clock := newManualClock()
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{Retries: 1, Clock: newInstantClock()})),
		WithDeadlineConfig(NewDeadline(DeadlineConfig{Timeout: time.Second, Clock: clock})),
	)

	var attempts atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Execute(context.Background(), func(ctx context.Context) error {
			if attempts.Add(1) == 1 {
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		})
	}()

	waitFor(t, func() bool { return clock.Waiters() == 1 })
	clock.Advance(time.Second)

	if err := <-errCh; err != nil {
		t.Errorf("Execute() error = %v, want the second attempt to succeed", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestExecutor_BreakerSeesEveryAttempt(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, Clock: newManualClock()})
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{Retries: 5, Clock: newInstantClock()})),
		WithCircuitBreaker(cb),
	)

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return failure.Transient("down")
	})

	// Two attempts trip the breaker; the third is rejected and not retried.
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want circuit open in chain", err)
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("Execute() error = %v, want RETRIES_EXHAUSTED", err)
	}
}

func TestExecutor_RateLimitedRejectionIsTransient(t *testing.T) {
	e := NewExecutor(WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 0.1, Burst: 1})))

	_ = e.Execute(context.Background(), okOp)
	err := e.Execute(context.Background(), okOp)

	if !errors.Is(err, ErrRateLimitExceeded) || !failure.IsTransient(err) {
		t.Errorf("Execute() error = %v, want transient RATE_LIMITED", err)
	}
}

func TestExecutor_RecoversPanic(t *testing.T) {
	e := NewExecutor()

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})
	if !errors.Is(err, ErrTaskPanic) {
		t.Errorf("Execute() error = %v, want TASK_PANIC", err)
	}
}

// A breaker-protected, retrying fetch of 6 items through a limiter of 3,
// where each item fails transiently once, yields 6 successes and exactly
// one retry per item.
func TestExecutor_EndToEnd(t *testing.T) {
	var retries atomic.Int32
	var active, peak atomic.Int32

	e := NewExecutor(
		WithLimiter(NewLimiter(LimiterConfig{Concurrency: 3})),
		WithRetry(NewRetry(RetryConfig{
			Retries:   3,
			BaseDelay: time.Millisecond,
			MaxDelay:  10 * time.Millisecond,
			Jitter:    true,
			OnRetry:   func(RetryEvent) { retries.Add(1) },
		})),
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{Threshold: 10})),
	)

	var mu sync.Mutex
	seen := map[int]bool{}

	tasks := make([]Task[string], 6)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (string, error) {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			mu.Lock()
			first := !seen[i]
			seen[i] = true
			mu.Unlock()

			if first {
				return "", failure.Transient(fmt.Sprintf("item %d unavailable", i))
			}
			return fmt.Sprintf("item-%d", i), nil
		}
	}

	outcomes, err := RunAll(context.Background(), tasks, WithBatchPattern(e))
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	for i, o := range outcomes {
		if want := fmt.Sprintf("item-%d", i); o.Value != want {
			t.Errorf("outcome[%d] = %+v, want %q", i, o, want)
		}
	}
	if got := retries.Load(); got != 6 {
		t.Errorf("retry observer calls = %d, want 6", got)
	}
	if got := peak.Load(); got > 3 {
		t.Errorf("peak active = %d, want <= 3", got)
	}
}
