package observe

import (
	"context"

	"github.com/jonwraymond/toolguard/failure"
	"github.com/jonwraymond/toolguard/resilience"
)

// Hooks adapts resilience callbacks into metrics and log lines for one
// operation. Install OnRetry in RetryConfig.OnRetry and OnStateChange in
// CircuitBreakerConfig.OnStateChange.
//
// Both callbacks run synchronously inside the pattern (OnStateChange while
// the breaker is locked), so they only record and never block.
type Hooks struct {
	meta    OpMeta
	metrics Metrics
	logger  Logger
}

// NewHooks creates hooks for meta. Nil metrics or logger are replaced by
// no-ops.
func NewHooks(meta OpMeta, metrics Metrics, logger Logger) *Hooks {
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Hooks{meta: meta, metrics: metrics, logger: logger.WithOperation(meta)}
}

// HooksFromMiddleware creates hooks sharing the middleware's metrics and logger.
func HooksFromMiddleware(m *Middleware, meta OpMeta) *Hooks {
	return NewHooks(meta, m.Metrics(), m.Logger())
}

// OnRetry records a retry. It matches RetryConfig.OnRetry.
func (h *Hooks) OnRetry(e resilience.RetryEvent) {
	ctx := context.Background()
	h.metrics.RecordRetry(ctx, h.meta, e.Attempt, e.Err)
	h.logger.Warn(ctx, "retrying operation",
		Field{Key: "attempt", Value: e.Attempt},
		Field{Key: "delay_ms", Value: e.Delay.Milliseconds()},
		Field{Key: "failure.code", Value: failure.CodeOf(e.Err)},
		Field{Key: "error", Value: errString(e.Err)},
	)
}

// OnStateChange logs a breaker transition. It matches
// CircuitBreakerConfig.OnStateChange.
func (h *Hooks) OnStateChange(from, to resilience.State) {
	ctx := context.Background()
	fields := []Field{
		{Key: "from", Value: from.String()},
		{Key: "to", Value: to.String()},
	}
	if to == resilience.StateOpen {
		h.logger.Warn(ctx, "circuit opened", fields...)
		return
	}
	h.logger.Info(ctx, "circuit closed", fields...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
