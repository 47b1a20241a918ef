package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/toolguard/failure"
)

func TestNewDeadline_Defaults(t *testing.T) {
	d := NewDeadline(DeadlineConfig{})

	if d.Config().Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", d.Config().Timeout)
	}
}

func TestDeadline_Success(t *testing.T) {
	d := NewDeadline(DeadlineConfig{Timeout: time.Second})

	if err := d.Execute(context.Background(), okOp); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestDeadline_PassesTaskError(t *testing.T) {
	d := NewDeadline(DeadlineConfig{Timeout: time.Second})
	testErr := errors.New("test error")

	if err := d.Execute(context.Background(), failOp(testErr)); err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
}

func TestDeadline_TimeoutSignalsTask(t *testing.T) {
	clock := newManualClock()
	d := NewDeadline(DeadlineConfig{Timeout: 50 * time.Millisecond, Clock: clock})

	observed := make(chan error, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Execute(context.Background(), func(ctx context.Context) error {
			<-ctx.Done()
			observed <- ctx.Err()
			return nil
		})
	}()

	waitFor(t, func() bool { return clock.Waiters() == 1 })
	clock.Advance(50 * time.Millisecond)

	err := <-errCh
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if !failure.IsTransient(err) {
		t.Error("timeout should be transient by default")
	}

	select {
	case cerr := <-observed:
		if !errors.Is(cerr, context.Canceled) {
			t.Errorf("task saw %v, want context.Canceled", cerr)
		}
	case <-time.After(time.Second):
		t.Fatal("task never observed cancellation")
	}
}

func TestDeadline_ReturnsWhileTaskContinues(t *testing.T) {
	clock := newManualClock()
	d := NewDeadline(DeadlineConfig{Timeout: time.Second, Clock: clock})

	release := make(chan struct{})
	finished := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Execute(context.Background(), func(ctx context.Context) error {
			<-release
			close(finished)
			return nil
		})
	}()

	waitFor(t, func() bool { return clock.Waiters() == 1 })
	clock.Advance(time.Second)

	if err := <-errCh; !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	select {
	case <-finished:
		t.Fatal("task finished before it was released")
	default:
	}

	close(release)
	<-finished
}

func TestDeadline_Permanent(t *testing.T) {
	clock := newManualClock()
	d := NewDeadline(DeadlineConfig{Timeout: time.Second, Permanent: true, Clock: clock})

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Execute(context.Background(), func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	waitFor(t, func() bool { return clock.Waiters() == 1 })
	clock.Advance(time.Second)

	err := <-errCh
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if failure.IsTransient(err) {
		t.Error("permanent timeout should not be transient")
	}
}

func TestDeadline_ParentCancelled(t *testing.T) {
	d := NewDeadline(DeadlineConfig{Timeout: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := d.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("task should not start under a cancelled context")
	}
}

func TestRunWithDeadline(t *testing.T) {
	v, err := RunWithDeadline(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	if err != nil || v != "done" {
		t.Errorf("RunWithDeadline() = (%q, %v), want (done, nil)", v, err)
	}

	v, err = RunWithDeadline(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "late", nil
	})
	if !errors.Is(err, ErrTimeout) || v != "" {
		t.Errorf("RunWithDeadline() = (%q, %v), want zero value and ErrTimeout", v, err)
	}
}
