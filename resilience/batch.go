package resilience

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolguard/failure"
)

// Outcome is the settled result of one task in a batch.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the task succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

type batchOptions struct {
	limiter *Limiter
	pattern Pattern
}

// BatchOption configures RunAll.
type BatchOption func(*batchOptions)

// WithBatchLimiter runs every task of the batch through l.
func WithBatchLimiter(l *Limiter) BatchOption {
	return func(o *batchOptions) {
		o.limiter = l
	}
}

// WithBatchPattern wraps every task of the batch in p (typically an Executor
// or a Retry) before it is handed to the limiter.
func WithBatchPattern(p Pattern) BatchOption {
	return func(o *batchOptions) {
		o.pattern = p
	}
}

// RunAll runs all tasks and waits for every one of them to settle, even
// after some have failed. Outcomes are indexed by task position.
//
// If any task failed, the returned error is an AGGREGATE failure whose
// members are the task failures in index order. An empty batch succeeds.
func RunAll[T any](ctx context.Context, tasks []Task[T], opts ...BatchOption) ([]Outcome[T], error) {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	outcomes := make([]Outcome[T], len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		run := func(ctx context.Context) (T, error) {
			return Run(ctx, o.pattern, task)
		}

		g.Go(func() error {
			var out Outcome[T]
			if o.limiter != nil {
				// Wait for settlement regardless of ctx; the task observes
				// ctx itself.
				out.Value, out.Err = Submit(ctx, o.limiter, run).Wait(context.Background())
			} else {
				out.Value, out.Err = run(ctx)
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	if failed := Failed(outcomes); len(failed) > 0 {
		return outcomes, failure.Aggregate("one or more tasks failed", failed,
			failure.WithMeta("failed", len(failed)),
			failure.WithMeta("total", len(tasks)),
			failure.WithMeta("batch_id", uuid.NewString()),
		)
	}
	return outcomes, nil
}

// Values returns the values of the successful outcomes, in order.
func Values[T any](outcomes []Outcome[T]) []T {
	values := make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			values = append(values, o.Value)
		}
	}
	return values
}

// Failed returns the errors of the failed outcomes, in order.
func Failed[T any](outcomes []Outcome[T]) []error {
	var errs []error
	for _, o := range outcomes {
		if !o.OK() {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
