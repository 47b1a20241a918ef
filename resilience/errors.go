package resilience

import "github.com/jonwraymond/toolguard/failure"

// Sentinel failures for resilience operations. They match returned
// failures by code, so use errors.Is rather than ==.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = failure.New(failure.KindCircuitOpen, "resilience: circuit breaker is open")

	// ErrRetriesExhausted is returned when the retry executor gives up.
	ErrRetriesExhausted = failure.New(failure.KindPermanent, "resilience: retries exhausted",
		failure.WithCode(failure.CodeRetriesExhausted))

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = failure.New(failure.KindTransient, "resilience: rate limit exceeded",
		failure.WithCode(failure.CodeRateLimited))

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = failure.New(failure.KindTimeout, "resilience: operation timed out")

	// ErrAggregate is returned when one or more tasks of a batch failed.
	ErrAggregate = failure.New(failure.KindAggregate, "resilience: one or more tasks failed")

	// ErrTaskPanic is returned when a task panicked.
	ErrTaskPanic = failure.New(failure.KindPermanent, "resilience: task panicked",
		failure.WithCode(failure.CodeTaskPanic))
)
