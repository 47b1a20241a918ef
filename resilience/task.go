package resilience

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/toolguard/failure"
)

// Task is a unit of work producing a value. A task may be invoked once per
// retry attempt, so it must be idempotent or the caller must accept
// re-execution.
type Task[T any] func(ctx context.Context) (T, error)

// Pattern is implemented by every wrapper in this package.
type Pattern interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Run executes a typed task through p and returns its value.
//
// A value produced after Run has returned (for example by an attempt that a
// Deadline stopped waiting for) is discarded.
func Run[T any](ctx context.Context, p Pattern, task Task[T]) (T, error) {
	if p == nil {
		return callTask(ctx, task)
	}

	var (
		mu     sync.Mutex
		value  T
		sealed bool
	)

	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := callTask(ctx, task)
		if err != nil {
			return err
		}
		mu.Lock()
		if !sealed {
			value = v
		}
		mu.Unlock()
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	sealed = true

	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// callTask invokes task, turning a panic into a permanent failure.
func callTask[T any](ctx context.Context, task Task[T]) (value T, err error) {
	if task == nil {
		return value, failure.Permanent("resilience: nil task")
	}
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = failure.New(failure.KindPermanent, "task panicked",
				failure.WithCode(failure.CodeTaskPanic),
				failure.WithMeta("panic", fmt.Sprint(r)),
			)
		}
	}()
	return task(ctx)
}

// callOp is callTask for untyped operations.
func callOp(ctx context.Context, op func(context.Context) error) error {
	_, err := callTask(ctx, func(ctx context.Context) (struct{}, error) {
		if op == nil {
			return struct{}{}, failure.Permanent("resilience: nil operation")
		}
		return struct{}{}, op(ctx)
	})
	return err
}
