package resilience

import (
	"context"
	"sync"
)

// LimiterConfig configures the concurrency limiter.
type LimiterConfig struct {
	// Concurrency is the maximum number of tasks executing at once.
	// Default: 10
	Concurrency int
}

// Limiter admits at most Concurrency tasks at a time and queues the rest.
// Admission follows submission order; completion order is unconstrained.
// The queue is unbounded, so callers bound their own batch sizes.
type Limiter struct {
	config LimiterConfig

	mu        sync.Mutex
	queue     []func()
	active    int
	maxActive int
	completed int64
}

// NewLimiter creates a new concurrency limiter.
func NewLimiter(config LimiterConfig) *Limiter {
	if config.Concurrency <= 0 {
		config.Concurrency = 10
	}

	return &Limiter{config: config}
}

// Future is the handle for a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) settle(value T, err error) {
	f.value, f.err = value, err
	close(f.done)
}

// Done is closed once the task has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task settles or ctx is done. Giving up on ctx only
// stops waiting; the task still runs when admitted.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value and error without blocking. ok is false
// while the task is still queued or running.
func (f *Future[T]) Result() (value T, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		return value, nil, false
	}
}

// Submit queues task on l and returns its handle. It never blocks and never
// fails. If ctx is already done when the task is admitted, the task is
// skipped and settles with ctx.Err().
func Submit[T any](ctx context.Context, l *Limiter, task Task[T]) *Future[T] {
	f := newFuture[T]()

	l.enqueue(func() {
		defer l.release()

		if err := ctx.Err(); err != nil {
			var zero T
			f.settle(zero, err)
			return
		}
		f.settle(callTask(ctx, task))
	})

	return f
}

// Execute runs op within the limiter and waits for it to settle.
func (l *Limiter) Execute(ctx context.Context, op func(context.Context) error) error {
	f := Submit(ctx, l, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	_, err := f.Wait(ctx)
	return err
}

func (l *Limiter) enqueue(run func()) {
	l.mu.Lock()
	l.queue = append(l.queue, run)
	ready := l.admitLocked()
	l.mu.Unlock()

	start(ready)
}

func (l *Limiter) release() {
	l.mu.Lock()
	l.active--
	l.completed++
	ready := l.admitLocked()
	l.mu.Unlock()

	start(ready)
}

// admitLocked pops queued tasks while slots are free.
func (l *Limiter) admitLocked() []func() {
	var ready []func()
	for l.active < l.config.Concurrency && len(l.queue) > 0 {
		run := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]

		l.active++
		if l.active > l.maxActive {
			l.maxActive = l.active
		}
		ready = append(ready, run)
	}
	return ready
}

func start(ready []func()) {
	for _, run := range ready {
		go run()
	}
}

// Metrics returns current limiter metrics.
func (l *Limiter) Metrics() LimiterMetrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	return LimiterMetrics{
		Active:      l.active,
		MaxActive:   l.maxActive,
		Queued:      len(l.queue),
		Available:   l.config.Concurrency - l.active,
		Concurrency: l.config.Concurrency,
		Completed:   l.completed,
	}
}

// LimiterMetrics contains limiter statistics.
type LimiterMetrics struct {
	Active      int
	MaxActive   int
	Queued      int
	Available   int
	Concurrency int
	Completed   int64
}
