package health

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonwraymond/toolguard/failure"
	"github.com/jonwraymond/toolguard/resilience"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds each individual check.
	// Default: 10 seconds
	Timeout time.Duration

	// Concurrency caps how many checks run at once. Zero runs all checks
	// concurrently.
	Concurrency int

	// Clock drives check timeouts.
	// Default: resilience.SystemClock()
	Clock resilience.Clock
}

// Aggregator combines multiple health checkers into a single composite check.
type Aggregator struct {
	config   AggregatorConfig
	deadline *resilience.Deadline
	limiter  *resilience.Limiter

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string // registration order
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	a := &Aggregator{
		config: cfg,
		deadline: resilience.NewDeadline(resilience.DeadlineConfig{
			Timeout:   cfg.Timeout,
			Permanent: true,
			Clock:     cfg.Clock,
		}),
		checkers: make(map[string]Checker),
	}
	if cfg.Concurrency > 0 {
		a.limiter = resilience.NewLimiter(resilience.LimiterConfig{Concurrency: cfg.Concurrency})
	}
	return a
}

// Register adds a health checker to the aggregator. Registering a name
// twice replaces the earlier checker.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Unregister removes a health checker from the aggregator.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.checkers, name)
	if i := slices.Index(a.order, name); i >= 0 {
		a.order = slices.Delete(a.order, i, i+1)
	}
}

// CheckerNames returns the names of all registered checkers in registration
// order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return slices.Clone(a.order)
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	start := time.Now()
	result, err := resilience.Run(ctx, a.deadline, a.task(checker))
	if err != nil {
		return failedResult(err, start), nil
	}
	return result, nil
}

// CheckAll runs all registered health checks and returns the results keyed
// by checker name. Every check settles before CheckAll returns; a check that
// times out or panics is reported as unhealthy.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := slices.Clone(a.order)
	tasks := make([]resilience.Task[Result], len(names))
	for i, name := range names {
		tasks[i] = a.task(a.checkers[name])
	}
	a.mu.RUnlock()

	results := make(map[string]Result, len(names))
	if len(tasks) == 0 {
		return results
	}

	opts := []resilience.BatchOption{resilience.WithBatchPattern(a.deadline)}
	if a.limiter != nil {
		opts = append(opts, resilience.WithBatchLimiter(a.limiter))
	}

	start := time.Now()
	// The aggregate error duplicates the per-outcome errors.
	outcomes, _ := resilience.RunAll(ctx, tasks, opts...)

	for i, out := range outcomes {
		if out.OK() {
			results[names[i]] = out.Value
			continue
		}
		results[names[i]] = failedResult(out.Err, start)
	}
	return results
}

func (a *Aggregator) task(checker Checker) resilience.Task[Result] {
	return func(ctx context.Context) (Result, error) {
		start := time.Now()
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		return result, nil
	}
}

func failedResult(err error, start time.Time) Result {
	r := Result{
		Status:    StatusUnhealthy,
		Duration:  time.Since(start),
		Timestamp: start,
	}
	switch {
	case failure.KindOf(err) == failure.KindTimeout:
		r.Message = "check timed out"
		r.Error = fmt.Errorf("%w: %w", ErrCheckTimeout, err)
	case errors.Is(err, resilience.ErrTaskPanic):
		r.Message = "check panicked"
		r.Error = fmt.Errorf("%w: %w", ErrCheckFailed, err)
	default:
		r.Message = "check aborted"
		r.Error = fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}
	return r
}

// OverallStatus computes the overall health status from a set of results.
// Returns Unhealthy if any check is unhealthy.
// Returns Degraded if any check is degraded but none are unhealthy.
// Returns Healthy if all checks are healthy.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, result := range results {
		overall = max(overall, result.Status)
	}
	return overall
}

// Checker returns a single Checker interface for the aggregator.
// This allows the aggregator to be used as a checker itself.
func (a *Aggregator) Checker() Checker {
	return &aggregatorChecker{agg: a}
}

type aggregatorChecker struct {
	agg *Aggregator
}

func (c *aggregatorChecker) Name() string {
	return "aggregate"
}

func (c *aggregatorChecker) Check(ctx context.Context) Result {
	results := c.agg.CheckAll(ctx)
	status := c.agg.OverallStatus(results)

	details := make(map[string]any, len(results))
	for name, result := range results {
		details[name] = map[string]any{
			"status":   result.Status.String(),
			"message":  result.Message,
			"duration": result.Duration.String(),
		}
	}

	var message string
	switch status {
	case StatusHealthy:
		message = "all checks passed"
	case StatusDegraded:
		message = "some checks degraded"
	default:
		message = "some checks failed"
	}

	return Result{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}
