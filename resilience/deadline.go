package resilience

import (
	"context"
	"time"

	"github.com/jonwraymond/toolguard/failure"
)

// DeadlineConfig configures the deadline runner.
type DeadlineConfig struct {
	// Timeout is the maximum time to wait for the operation.
	// Default: 30 seconds
	Timeout time.Duration

	// Permanent marks timeout failures as not retryable.
	// Default: false (timeouts are transient)
	Permanent bool

	// Clock drives the deadline.
	// Default: SystemClock()
	Clock Clock
}

// Deadline runs operations with a deadline and a cancellation signal.
//
// When the deadline elapses the operation's context is cancelled and Execute
// returns a TIMEOUT failure at once. The operation is not preempted: it keeps
// running until it notices the cancellation (or finishes), and its result is
// discarded.
type Deadline struct {
	config DeadlineConfig
	clock  Clock
}

// NewDeadline creates a new deadline runner.
func NewDeadline(config DeadlineConfig) *Deadline {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Deadline{config: config, clock: clockOrSystem(config.Clock)}
}

// Execute runs the operation with the configured deadline.
func (d *Deadline) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- callOp(opCtx, op)
	}()

	select {
	case err := <-done:
		return err
	case <-d.clock.After(d.config.Timeout):
		return failure.New(failure.KindTimeout, "operation timed out",
			failure.WithRetryable(!d.config.Permanent),
			failure.WithMeta("timeout", d.config.Timeout.String()),
		)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config returns the deadline configuration.
func (d *Deadline) Config() DeadlineConfig {
	return d.config
}

// RunWithDeadline is a convenience function to run a task with a deadline.
func RunWithDeadline[T any](ctx context.Context, timeout time.Duration, task Task[T]) (T, error) {
	return Run(ctx, NewDeadline(DeadlineConfig{Timeout: timeout}), task)
}
