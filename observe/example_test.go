package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/toolguard/failure"
	"github.com/jonwraymond/toolguard/observe"
	"github.com/jonwraymond/toolguard/resilience"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleConfig_Validate() {
	cfg := observe.Config{
		ServiceName: "checkout",
		Tracing: observe.TracingConfig{
			Enabled:   true,
			Exporter:  "stdout",
			SamplePct: 0.5,
		},
		Metrics: observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging: observe.LoggingConfig{Enabled: true, Level: "verbose"},
	}

	err := cfg.Validate()
	fmt.Println(errors.Is(err, observe.ErrInvalidLogLevel))
	// Output:
	// true
}

func ExampleOpMeta_SpanName() {
	fmt.Println(observe.OpMeta{Dependency: "payments", Name: "charge"}.SpanName())
	fmt.Println(observe.OpMeta{Name: "charge"}.SpanName())
	// Output:
	// op.exec.payments.charge
	// op.exec.charge
}

func ExampleOpMeta_OpID() {
	fmt.Println(observe.OpMeta{ID: "charge-v2", Dependency: "payments", Name: "charge"}.OpID())
	fmt.Println(observe.OpMeta{Dependency: "payments", Name: "charge"}.OpID())
	// Output:
	// charge-v2
	// payments.charge
}

func ExampleLogger_WithOperation() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf).
		WithOperation(observe.OpMeta{Dependency: "payments", Name: "charge"})

	logger.Info(context.Background(), "charge accepted")

	fmt.Println(bytes.Contains(buf.Bytes(), []byte(`"op.id":"payments.charge"`)))
	// Output:
	// true
}

func ExampleMiddleware_Protect() {
	ctx := context.Background()
	obs, _ := observe.NewObserver(ctx, observe.Config{
		ServiceName: "example",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "none"},
	})
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	mw, _ := observe.MiddlewareFromObserver(obs)
	meta := observe.OpMeta{Dependency: "payments", Name: "charge"}

	hooks := observe.HooksFromMiddleware(mw, meta)
	exec := resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			Retries: 2,
			OnRetry: hooks.OnRetry,
		})),
	)

	attempts := 0
	charge := mw.Protect(meta, func(ctx context.Context) error {
		return exec.Execute(ctx, func(context.Context) error {
			attempts++
			if attempts < 2 {
				return failure.Transient("gateway busy")
			}
			return nil
		})
	})

	fmt.Println(charge(ctx), attempts)
	// Output:
	// <nil> 2
}

func ExampleReporter() {
	r := observe.NewReporter(observe.NopLogger())

	r.Report(context.Background(), observe.OpMeta{Name: "charge"}, failure.Permanent("card declined"))
	r.Report(context.Background(), observe.OpMeta{Name: "charge"}, nil)

	fmt.Println(r.Reported())
	// Output:
	// 1
}

func ExampleParseLogLevel() {
	for _, s := range []string{"debug", "info", "warn", "error", "unknown"} {
		fmt.Printf("%s -> %s\n", s, observe.ParseLogLevel(s))
	}
	// Output:
	// debug -> debug
	// info -> info
	// warn -> warn
	// error -> error
	// unknown -> info
}
