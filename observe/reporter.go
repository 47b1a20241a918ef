package observe

import (
	"context"
	"sync/atomic"

	"github.com/jonwraymond/toolguard/failure"
)

// Reporter is a sink for terminal failures. It logs the serialized failure
// chain at error level.
//
// A Reporter is owned by whoever constructs it; nothing in this module
// installs one globally.
type Reporter struct {
	logger   Logger
	reported atomic.Int64
}

// NewReporter creates a Reporter writing to logger. A nil logger discards
// reports but still counts them.
func NewReporter(logger Logger) *Reporter {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Reporter{logger: logger}
}

// Report records a terminal failure of op. A nil err is ignored.
func (r *Reporter) Report(ctx context.Context, op OpMeta, err error) {
	if err == nil {
		return
	}
	r.reported.Add(1)

	fields := []Field{
		{Key: "failure", Value: failure.Serialize(err)},
		{Key: "failure.kind", Value: failure.KindOf(err).String()},
	}
	if id := ExecID(ctx); id != "" {
		fields = append(fields, Field{Key: "exec.id", Value: id})
	}

	r.logger.WithOperation(op).Error(ctx, "unhandled failure", fields...)
}

// Reported returns how many failures have been reported.
func (r *Reporter) Reported() int64 {
	return r.reported.Load()
}
