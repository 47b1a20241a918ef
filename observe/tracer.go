package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/toolguard/failure"
)

// OpMeta describes a protected operation for telemetry purposes.
type OpMeta struct {
	ID         string   // Fully qualified operation ID (dependency.name or just name)
	Dependency string   // Downstream dependency the operation calls (may be empty)
	Name       string   // Operation name (required)
	Version    string   // Operation version (optional)
	Tags       []string // Free-form tags (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: op.exec.<dependency>.<name> or op.exec.<name>
func (m OpMeta) SpanName() string {
	if m.Dependency != "" {
		return "op.exec." + m.Dependency + "." + m.Name
	}
	return "op.exec." + m.Name
}

// OpID returns the fully qualified operation identifier.
func (m OpMeta) OpID() string {
	if m.ID != "" {
		return m.ID
	}
	if m.Dependency != "" {
		return m.Dependency + "." + m.Name
	}
	return m.Name
}

// Validate reports whether the metadata is usable.
func (m OpMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}

// attributes returns the common attribute set for spans and metrics.
func (m OpMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("op.id", m.OpID()),
		attribute.String("op.name", m.Name),
	}
	if m.Dependency != "" {
		attrs = append(attrs, attribute.String("op.dependency", m.Dependency))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation execution.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("op.error", false))

	if meta.Version != "" {
		attrs = append(attrs, attribute.String("op.version", meta.Version))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("op.tags", meta.Tags))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present. Failures
// contribute their kind and code as attributes.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		if f, ok := failure.From(err); ok {
			span.SetAttributes(
				attribute.String("failure.kind", f.Kind.String()),
				attribute.String("failure.code", f.Code),
			)
		}
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
