package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/toolguard/failure"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through.
	StateClosed State = iota
	// StateOpen means calls are rejected without invoking the operation.
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the protected dependency in failures and hooks.
	Name string

	// Threshold is the number of failures inside Window that opens the circuit.
	// Default: 5
	Threshold int

	// Window is the sliding time window failures are counted in.
	// Default: 60 seconds
	Window time.Duration

	// Cooldown is how long the circuit stays open.
	// Default: 30 seconds
	Cooldown time.Duration

	// OnStateChange is called when the circuit state changes. It runs with
	// the breaker locked and must not call back into the breaker.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure. Errors it
	// rejects neither count nor reset the window.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Clock supplies the current time.
	// Default: SystemClock()
	Clock Clock
}

// CircuitBreaker implements a windowed circuit breaker with two states. The
// circuit is open while now < openUntil and closes implicitly afterwards.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	clock  Clock

	mu        sync.Mutex
	failures  []time.Time
	openUntil time.Time
	reported  State
	rejected  int64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		config:   config,
		clock:    clockOrSystem(config.Clock),
		reported: StateClosed,
	}
}

// Execute runs the operation through the circuit breaker. While the circuit
// is open it fails with a CIRCUIT_OPEN failure and op is not invoked.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := callOp(ctx, op)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked(cb.clock.Now())
}

// Name returns the configured breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Reset closes the circuit and forgets all recorded failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = nil
	cb.openUntil = time.Time{}
	cb.setStateLocked(StateClosed)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.currentStateLocked(cb.clock.Now()) == StateOpen {
		cb.rejected++
		return failure.New(failure.KindCircuitOpen, "circuit open",
			failure.WithMeta("open_until", cb.openUntil),
			failure.WithMeta("breaker", cb.config.Name),
		)
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()
	if cb.currentStateLocked(now) == StateOpen {
		// Another call tripped the circuit while this one was in flight.
		return
	}

	if err == nil {
		cb.failures = cb.failures[:0]
		return
	}
	if !cb.config.IsFailure(err) {
		return
	}

	cb.failures = append(cb.failures, now)
	cb.pruneLocked(now)

	if len(cb.failures) >= cb.config.Threshold {
		cb.openUntil = now.Add(cb.config.Cooldown)
		cb.failures = cb.failures[:0]
		cb.setStateLocked(StateOpen)
	}
}

// pruneLocked drops failures not newer than now-Window. Timestamps are
// appended in order, so the survivors form a suffix.
func (cb *CircuitBreaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-cb.config.Window)
	i := 0
	for i < len(cb.failures) && !cb.failures[i].After(cutoff) {
		i++
	}
	if i > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	}
}

func (cb *CircuitBreaker) currentStateLocked(now time.Time) State {
	state := StateClosed
	if now.Before(cb.openUntil) {
		state = StateOpen
	}
	cb.setStateLocked(state)
	return state
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	if cb.reported == state {
		return
	}
	from := cb.reported
	cb.reported = state
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, state)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()
	state := cb.currentStateLocked(now)
	if state == StateClosed {
		cb.pruneLocked(now)
	}

	return CircuitBreakerMetrics{
		State:     state,
		Failures:  len(cb.failures),
		OpenUntil: cb.openUntil,
		Rejected:  cb.rejected,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State     State
	Failures  int
	OpenUntil time.Time
	Rejected  int64
}
