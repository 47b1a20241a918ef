package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/toolguard/failure"
)

// Metrics records execution metrics for protected operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records an execution with duration and error status.
	RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordRetry records a retry about to happen.
	RecordRetry(ctx context.Context, meta OpMeta, attempt int, err error)

	// RecordRejection records a call rejected by an open circuit.
	RecordRejection(ctx context.Context, meta OpMeta)
}

type metricsImpl struct {
	totalCount     metric.Int64Counter
	errorCount     metric.Int64Counter
	durationHist   metric.Float64Histogram
	retryCount     metric.Int64Counter
	rejectionCount metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"op.exec.total",
		metric.WithDescription("Total number of operation executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"op.exec.errors",
		metric.WithDescription("Total number of failed operation executions"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"op.exec.duration_ms",
		metric.WithDescription("Operation execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"op.retry.total",
		metric.WithDescription("Total number of retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	rejectionCount, err := meter.Int64Counter(
		"op.circuit.rejections",
		metric.WithDescription("Total number of calls rejected by an open circuit"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:     totalCount,
		errorCount:     errorCount,
		durationHist:   durationHist,
		retryCount:     retryCount,
		rejectionCount: rejectionCount,
	}, nil
}

// NewMetrics creates Metrics backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

// RecordExecution records metrics for an operation execution.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	attrs := meta.attributes()
	m.totalCount.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil {
		errAttrs := append(attrs, attribute.String("failure.code", codeOrUnknown(err)))
		m.errorCount.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRetry increments the retry counter.
func (m *metricsImpl) RecordRetry(ctx context.Context, meta OpMeta, attempt int, err error) {
	attrs := append(meta.attributes(), attribute.String("failure.code", codeOrUnknown(err)))
	m.retryCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRejection increments the circuit rejection counter.
func (m *metricsImpl) RecordRejection(ctx context.Context, meta OpMeta) {
	m.rejectionCount.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

func codeOrUnknown(err error) string {
	if code := failure.CodeOf(err); code != "" {
		return code
	}
	return "UNKNOWN"
}

type noopMetrics struct{}

func (m *noopMetrics) RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordRetry(ctx context.Context, meta OpMeta, attempt int, err error) {}

func (m *noopMetrics) RecordRejection(ctx context.Context, meta OpMeta) {}
