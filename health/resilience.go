package health

import (
	"context"
	"time"

	"github.com/jonwraymond/toolguard/resilience"
)

// BreakerChecker reports a circuit breaker's state. An open circuit is
// unhealthy; a closed circuit with recent failures is still healthy.
type BreakerChecker struct {
	name string
	cb   *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for cb, named after the breaker.
func NewBreakerChecker(cb *resilience.CircuitBreaker) *BreakerChecker {
	name := "circuit"
	if cb.Name() != "" {
		name = "circuit:" + cb.Name()
	}
	return &BreakerChecker{name: name, cb: cb}
}

// Name returns the checker name.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check reads the breaker state without running anything through it.
func (c *BreakerChecker) Check(_ context.Context) Result {
	m := c.cb.Metrics()
	details := map[string]any{
		"state":    m.State.String(),
		"failures": m.Failures,
		"rejected": m.Rejected,
	}

	if m.State == resilience.StateOpen {
		details["open_until"] = m.OpenUntil.UTC().Format(time.RFC3339Nano)
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	}
	return Healthy("circuit closed").WithDetails(details)
}

// LimiterChecker reports a concurrency limiter's saturation. A limiter with
// every slot taken and tasks waiting is degraded.
type LimiterChecker struct {
	name string
	l    *resilience.Limiter
}

// NewLimiterChecker creates a checker for l.
func NewLimiterChecker(name string, l *resilience.Limiter) *LimiterChecker {
	if name == "" {
		name = "limiter"
	}
	return &LimiterChecker{name: name, l: l}
}

// Name returns the checker name.
func (c *LimiterChecker) Name() string {
	return c.name
}

// Check reads the limiter counters.
func (c *LimiterChecker) Check(_ context.Context) Result {
	m := c.l.Metrics()
	details := map[string]any{
		"active":      m.Active,
		"queued":      m.Queued,
		"available":   m.Available,
		"concurrency": m.Concurrency,
		"completed":   m.Completed,
	}

	if m.Available == 0 && m.Queued > 0 {
		return Degraded("limiter saturated").WithDetails(details)
	}
	return Healthy("limiter has capacity").WithDetails(details)
}
