package observe

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/toolguard/resilience"
)

// ExecuteFunc is the signature for operation functions wrapped by Middleware.
type ExecuteFunc func(ctx context.Context, op OpMeta) error

type execIDKey struct{}

// ExecID returns the execution id Middleware attached to ctx, if any.
func ExecID(ctx context.Context) string {
	id, _ := ctx.Value(execIDKey{}).(string)
	return id
}

// Middleware wraps operation execution with observability (tracing, metrics,
// logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging. Every call
// gets a fresh execution id, available to fn through ExecID.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, op OpMeta) error {
		execID := uuid.NewString()
		ctx = context.WithValue(ctx, execIDKey{}, execID)

		ctx, span := m.tracer.StartSpan(ctx, op)
		span.SetAttributes(attribute.String("op.exec_id", execID))

		start := time.Now()
		err := fn(ctx, op)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)

		m.metrics.RecordExecution(ctx, op, duration, err)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			m.metrics.RecordRejection(ctx, op)
		}

		opLogger := m.logger.WithOperation(op)
		fields := []Field{
			{Key: "exec.id", Value: execID},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			fields = append(fields, Field{Key: "trace_id", Value: sc.TraceID().String()})
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Error(ctx, "operation failed", fields...)
		} else {
			opLogger.Info(ctx, "operation completed", fields...)
		}

		return err
	}
}

// Protect returns op instrumented under meta, in the shape the resilience
// patterns accept.
func (m *Middleware) Protect(meta OpMeta, op func(context.Context) error) func(context.Context) error {
	wrapped := m.Wrap(func(ctx context.Context, _ OpMeta) error {
		return op(ctx)
	})
	return func(ctx context.Context) error {
		return wrapped(ctx, meta)
	}
}

// Metrics returns the metrics recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
