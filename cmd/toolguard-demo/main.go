// Package main runs a fan-out batch against a simulated flaky dependency
// using a resilience policy file, and prints the outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonwraymond/toolguard/config"
	"github.com/jonwraymond/toolguard/failure"
	"github.com/jonwraymond/toolguard/health"
	"github.com/jonwraymond/toolguard/observe"
	"github.com/jonwraymond/toolguard/resilience"
)

type options struct {
	configPath string
	items      int
	flaky      int
	broken     int
	latency    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a policy file (defaults apply when empty)")
	flag.IntVar(&opts.items, "items", 6, "number of items in the batch")
	flag.IntVar(&opts.flaky, "flaky", 1, "attempts per item that fail transiently before succeeding")
	flag.IntVar(&opts.broken, "broken", -1, "index of an item that always fails permanently (-1 for none)")
	flag.DurationVar(&opts.latency, "latency", 20*time.Millisecond, "simulated latency per attempt")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, opts, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "toolguard-demo:", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, opts options, out io.Writer) (int, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return 2, err
		}
		cfg = loaded
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return 2, fmt.Errorf("creating observer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return 2, err
	}

	dependency := cfg.CircuitBreaker.Name
	if dependency == "" {
		dependency = "upstream"
	}
	meta := observe.OpMeta{Dependency: dependency, Name: "fetch"}
	hooks := observe.HooksFromMiddleware(mw, meta)
	reporter := observe.NewReporter(mw.Logger())

	exec := cfg.NewExecutor(
		config.WithRetryHook(hooks.OnRetry),
		config.WithStateChangeHook(hooks.OnStateChange),
	)

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: time.Second})
	agg.Register("circuit", health.NewBreakerChecker(exec.CircuitBreaker()))
	agg.Register("limiter", health.NewLimiterChecker(dependency, exec.Limiter()))

	dep := newFlakyDependency(opts)
	fetch := mw.Protect(meta, func(ctx context.Context) error {
		return exec.Execute(ctx, func(ctx context.Context) error {
			_, err := dep.call(ctx, itemFrom(ctx))
			return err
		})
	})

	tasks := make([]resilience.Task[string], opts.items)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (string, error) {
			ctx = withItem(ctx, i)
			if err := fetch(ctx); err != nil {
				reporter.Report(ctx, meta, err)
				return "", err
			}
			return fmt.Sprintf("item-%d", i), nil
		}
	}

	start := time.Now()
	outcomes, batchErr := resilience.RunAll(ctx, tasks)
	elapsed := time.Since(start)

	report := buildReport(outcomes, batchErr, elapsed)
	report.Breaker = exec.CircuitBreaker().Metrics()
	report.Limiter = exec.Limiter().Metrics()
	report.Attempts = dep.attemptsTotal()
	report.Health = healthSummary(ctx, agg)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return 2, err
	}

	if batchErr != nil {
		return 1, nil
	}
	return 0, nil
}

type itemKey struct{}

func withItem(ctx context.Context, i int) context.Context {
	return context.WithValue(ctx, itemKey{}, i)
}

func itemFrom(ctx context.Context) int {
	i, _ := ctx.Value(itemKey{}).(int)
	return i
}

// flakyDependency fails the first opts.flaky attempts for every item with a
// transient failure, and always fails item opts.broken permanently.
type flakyDependency struct {
	opts options

	mu       sync.Mutex
	attempts map[int]int
}

func newFlakyDependency(opts options) *flakyDependency {
	return &flakyDependency{opts: opts, attempts: make(map[int]int)}
}

func (d *flakyDependency) call(ctx context.Context, item int) (string, error) {
	d.mu.Lock()
	d.attempts[item]++
	n := d.attempts[item]
	d.mu.Unlock()

	select {
	case <-time.After(d.opts.latency):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if item == d.opts.broken {
		return "", failure.Permanent("item rejected by upstream", failure.WithMeta("item", item))
	}
	if n <= d.opts.flaky {
		return "", failure.Transient("upstream busy", failure.WithMeta("item", item), failure.WithMeta("attempt", n))
	}
	return fmt.Sprintf("item-%d", item), nil
}

func (d *flakyDependency) attemptsTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := 0
	for _, n := range d.attempts {
		total += n
	}
	return total
}

type itemReport struct {
	Index   int            `json:"index"`
	Value   string         `json:"value,omitempty"`
	Failure map[string]any `json:"failure,omitempty"`
}

type checkReport struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type report struct {
	Succeeded int                              `json:"succeeded"`
	Failed    int                              `json:"failed"`
	Attempts  int                              `json:"attempts"`
	ElapsedMs int64                            `json:"elapsed_ms"`
	BatchID   string                           `json:"batch_id,omitempty"`
	Items     []itemReport                     `json:"items"`
	Breaker   resilience.CircuitBreakerMetrics `json:"breaker"`
	Limiter   resilience.LimiterMetrics        `json:"limiter"`
	Health    map[string]checkReport           `json:"health"`
}

func buildReport(outcomes []resilience.Outcome[string], batchErr error, elapsed time.Duration) *report {
	r := &report{
		ElapsedMs: elapsed.Milliseconds(),
		Items:     make([]itemReport, len(outcomes)),
	}
	for i, o := range outcomes {
		r.Items[i] = itemReport{Index: i, Value: o.Value}
		if o.OK() {
			r.Succeeded++
			continue
		}
		r.Failed++
		r.Items[i].Failure = failure.Serialize(o.Err)
	}

	if f, ok := failure.From(batchErr); ok {
		if id, ok := f.MetaValue("batch_id"); ok {
			r.BatchID, _ = id.(string)
		}
	}
	return r
}

func healthSummary(ctx context.Context, agg *health.Aggregator) map[string]checkReport {
	results := agg.CheckAll(ctx)
	summary := make(map[string]checkReport, len(results)+1)
	for name, res := range results {
		summary[name] = checkReport{Status: res.Status.String(), Message: res.Message}
	}
	summary["overall"] = checkReport{Status: agg.OverallStatus(results).String()}
	return summary
}
