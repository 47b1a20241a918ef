package observe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoggerContract_WithOperation(t *testing.T) {
	logger := &noopLogger{}
	if logger.WithOperation(OpMeta{Name: "noop"}) == nil {
		t.Fatalf("WithOperation should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	ctx := context.Background()
	meta := OpMeta{Name: "noop"}

	metrics.RecordExecution(ctx, meta, 10*time.Millisecond, nil)
	metrics.RecordRetry(ctx, meta, 1, errors.New("x"))
	metrics.RecordRejection(ctx, meta)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), OpMeta{Name: "noop"})
	tracer.EndSpan(span, nil)
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "discarded", Field{Key: "k", Value: 1})
	if l.WithOperation(OpMeta{Name: "x"}) == nil {
		t.Fatal("NopLogger().WithOperation returned nil")
	}
}
