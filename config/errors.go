package config

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing environment variable")

	// ErrInvalidRetry indicates an invalid retry section.
	ErrInvalidRetry = errors.New("config: invalid retry")

	// ErrInvalidCircuitBreaker indicates an invalid circuit_breaker section.
	ErrInvalidCircuitBreaker = errors.New("config: invalid circuit_breaker")

	// ErrInvalidLimiter indicates an invalid limiter section.
	ErrInvalidLimiter = errors.New("config: invalid limiter")

	// ErrInvalidDeadline indicates an invalid deadline section.
	ErrInvalidDeadline = errors.New("config: invalid deadline")

	// ErrInvalidRateLimit indicates an invalid rate_limit section.
	ErrInvalidRateLimit = errors.New("config: invalid rate_limit")

	// ErrInvalidObserve indicates an invalid observe section.
	ErrInvalidObserve = errors.New("config: invalid observe")
)
