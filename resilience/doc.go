// Package resilience provides resilience and concurrency-control patterns
// for opaque units of work.
//
// The patterns can be used independently or composed together to protect
// calls into a downstream dependency and to fan work out under a
// concurrency bound.
//
// # Patterns
//
//   - Retry: re-invokes a failed operation with exponential backoff and
//     jitter. Only failures explicitly tagged as transient are retried.
//
//   - Circuit Breaker: counts failures inside a sliding time window and,
//     once the threshold is reached, rejects calls until a cooldown elapses.
//     There is no half-open probing; the first call after the cooldown runs
//     normally.
//
//   - Limiter: admits at most N concurrent tasks and queues the rest in
//     FIFO order. Submitting never fails.
//
//   - Deadline: stops waiting for a task once its timeout elapses and
//     cancels the task's context. The task is not preempted; it may keep
//     running in the background and its result is discarded.
//
//   - RunAll: runs a batch to completion and reports every failure in an
//     aggregate, never short-circuiting on the first one.
//
//   - Rate Limiter: token bucket pacing built on golang.org/x/time/rate.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:      "users",
//	    Threshold: 5,
//	    Window:    time.Minute,
//	    Cooldown:  30 * time.Second,
//	})
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.DefaultRetryConfig())),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithDeadline(800*time.Millisecond),
//	)
//
//	limiter := resilience.NewLimiter(resilience.LimiterConfig{Concurrency: 3})
//
//	tasks := make([]resilience.Task[*User], len(ids))
//	for i, id := range ids {
//	    tasks[i] = func(ctx context.Context) (*User, error) {
//	        return fetchUser(ctx, id)
//	    }
//	}
//
//	outcomes, err := resilience.RunAll(ctx, tasks,
//	    resilience.WithBatchLimiter(limiter),
//	    resilience.WithBatchPattern(exec),
//	)
//
// Cancellation throughout the package means "stop waiting". Nothing here
// forcibly interrupts work that is already running.
package resilience
