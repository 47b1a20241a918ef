package observe

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jonwraymond/toolguard/failure"
	"github.com/jonwraymond/toolguard/resilience"
)

// BenchmarkLogger_Info measures logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_Info_MultipleFields measures logging with multiple fields.
func BenchmarkLogger_Info_MultipleFields(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	fields := []Field{
		{Key: "field1", Value: "value1"},
		{Key: "field2", Value: 42},
		{Key: "field3", Value: true},
		{Key: "token", Value: "redacted"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", fields...)
	}
}

func BenchmarkLogger_WithOperation(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	meta := OpMeta{Dependency: "users", Name: "fetch", Version: "1.0.0"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = logger.WithOperation(meta)
	}
}

// BenchmarkLogger_LevelFiltering measures the cost of dropped entries.
func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "filtered debug")
		logger.Info(ctx, "filtered info")
		logger.Warn(ctx, "filtered warn")
	}
}

func BenchmarkOpMeta_SpanName(b *testing.B) {
	meta := OpMeta{Dependency: "users", Name: "fetch"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.SpanName()
	}
}

func BenchmarkTracer_StartEndSpan(b *testing.B) {
	tracer := newNoopTracer()
	ctx := context.Background()
	meta := OpMeta{Dependency: "users", Name: "fetch"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := tracer.StartSpan(ctx, meta)
		tracer.EndSpan(span, nil)
	}
}

func BenchmarkMetrics_RecordExecution(b *testing.B) {
	metrics, _ := newTestMetrics(b)
	ctx := context.Background()
	meta := OpMeta{Dependency: "users", Name: "fetch"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordExecution(ctx, meta, 100*time.Millisecond, nil)
	}
}

func BenchmarkMetrics_RecordExecution_WithFailure(b *testing.B) {
	metrics, _ := newTestMetrics(b)
	ctx := context.Background()
	meta := OpMeta{Dependency: "users", Name: "fetch"}
	execErr := failure.Transient("benchmark failure")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordExecution(ctx, meta, 100*time.Millisecond, execErr)
	}
}

func BenchmarkMiddleware_Protect(b *testing.B) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "bench",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		b.Fatalf("failed to create observer: %v", err)
	}
	defer obs.Shutdown(ctx)

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		b.Fatalf("failed to create middleware: %v", err)
	}
	op := mw.Protect(OpMeta{Name: "fetch"}, func(context.Context) error { return nil })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = op(ctx)
	}
}

func BenchmarkMiddleware_ProtectExecutor(b *testing.B) {
	ctx := context.Background()
	tracer := newNoopTracer()
	metrics, _ := newTestMetrics(b)
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("info", io.Discard))

	exec := resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
		resilience.WithLimiter(resilience.NewLimiter(resilience.LimiterConfig{Concurrency: 8})),
	)
	op := mw.Protect(OpMeta{Name: "fetch"}, func(ctx context.Context) error {
		return exec.Execute(ctx, func(context.Context) error { return nil })
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = op(ctx)
		}
	})
}

func BenchmarkReporter_Report(b *testing.B) {
	r := NewReporter(NewLoggerWithWriter("info", io.Discard))
	ctx := context.Background()
	meta := OpMeta{Name: "fetch"}
	err := failure.Wrap(failure.KindPermanent, errors.New("root cause"), "fetch failed")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Report(ctx, meta, err)
	}
}

// BenchmarkConcurrent_Logger measures concurrent logging.
func BenchmarkConcurrent_Logger(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			logger.Info(ctx, "concurrent message", Field{Key: "iteration", Value: i})
			i++
		}
	})
}
