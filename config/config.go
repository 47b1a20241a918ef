package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolguard/observe"
	"github.com/jonwraymond/toolguard/resilience"
)

// Config is a resilience policy file.
type Config struct {
	Retry          RetryConfig          `yaml:"retry" json:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
	Limiter        LimiterConfig        `yaml:"limiter" json:"limiter"`
	Deadline       DeadlineConfig       `yaml:"deadline" json:"deadline"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit" json:"rate_limit"`
	Observe        ObserveConfig        `yaml:"observe" json:"observe"`
}

// RetryConfig holds retry and backoff settings.
type RetryConfig struct {
	Retries     *int  `yaml:"retries" json:"retries"` // default: 3; 0 means a single attempt
	BaseDelayMs int   `yaml:"base_delay_ms" json:"base_delay_ms"`
	MaxDelayMs  int   `yaml:"max_delay_ms" json:"max_delay_ms"`
	Jitter      *bool `yaml:"jitter" json:"jitter"` // default: true
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name       string `yaml:"name" json:"name"`
	Threshold  int    `yaml:"threshold" json:"threshold"`
	WindowMs   int    `yaml:"window_ms" json:"window_ms"`
	CooldownMs int    `yaml:"cooldown_ms" json:"cooldown_ms"`
}

// LimiterConfig holds concurrency limiter settings.
type LimiterConfig struct {
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// DeadlineConfig holds per-attempt deadline settings.
type DeadlineConfig struct {
	TimeoutMs int  `yaml:"timeout_ms" json:"timeout_ms"`
	Permanent bool `yaml:"permanent" json:"permanent"`
}

// RateLimitConfig holds token bucket settings. A zero rate disables rate
// limiting.
type RateLimitConfig struct {
	Rate      float64 `yaml:"rate" json:"rate"`
	Burst     int     `yaml:"burst" json:"burst"`
	Wait      bool    `yaml:"wait" json:"wait"`
	MaxWaitMs int     `yaml:"max_wait_ms" json:"max_wait_ms"`
}

// Enabled reports whether a rate limiter should be installed.
func (r RateLimitConfig) Enabled() bool {
	return r.Rate > 0
}

// ObserveConfig mirrors observe.Config.
type ObserveConfig struct {
	ServiceName string `yaml:"service_name" json:"service_name"`
	Version     string `yaml:"version" json:"version"`
	Tracing     struct {
		Enabled   bool     `yaml:"enabled" json:"enabled"`
		Exporter  string   `yaml:"exporter" json:"exporter"`
		SamplePct *float64 `yaml:"sample_pct" json:"sample_pct"` // default: 1.0
	} `yaml:"tracing" json:"tracing"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled" json:"enabled"`
		Exporter string `yaml:"exporter" json:"exporter"`
	} `yaml:"metrics" json:"metrics"`
	Logging struct {
		Enabled *bool  `yaml:"enabled" json:"enabled"` // default: true
		Level   string `yaml:"level" json:"level"`
	} `yaml:"logging" json:"logging"`
}

// Load reads, expands, parses, defaults and validates the policy file at
// path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document, expanding against the process
// environment.
func Parse(data []byte) (*Config, error) {
	return ParseWithEnv(data, os.LookupEnv)
}

// ParseWithEnv is Parse with a custom variable lookup.
func ParseWithEnv(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	expanded, err := ExpandEnvStrict(string(data), lookup)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset values. Values already set are kept.
func (c *Config) ApplyDefaults() {
	def := resilience.DefaultRetryConfig()
	if c.Retry.Retries == nil {
		c.Retry.Retries = ptr(def.Retries)
	}
	if c.Retry.BaseDelayMs == 0 {
		c.Retry.BaseDelayMs = int(def.BaseDelay.Milliseconds())
	}
	if c.Retry.MaxDelayMs == 0 {
		c.Retry.MaxDelayMs = int(def.MaxDelay.Milliseconds())
	}
	if c.Retry.Jitter == nil {
		c.Retry.Jitter = ptr(def.Jitter)
	}

	cb := &c.CircuitBreaker
	if cb.Threshold == 0 {
		cb.Threshold = 5
	}
	if cb.WindowMs == 0 {
		cb.WindowMs = 60000
	}
	if cb.CooldownMs == 0 {
		cb.CooldownMs = 30000
	}

	if c.Limiter.Concurrency == 0 {
		c.Limiter.Concurrency = 10
	}
	if c.Deadline.TimeoutMs == 0 {
		c.Deadline.TimeoutMs = 30000
	}

	if c.RateLimit.Enabled() {
		if c.RateLimit.Burst == 0 {
			c.RateLimit.Burst = 10
		}
		if c.RateLimit.MaxWaitMs == 0 {
			c.RateLimit.MaxWaitMs = 1000
		}
	}

	o := &c.Observe
	if o.ServiceName == "" {
		o.ServiceName = "toolguard"
	}
	if o.Tracing.Exporter == "" {
		o.Tracing.Exporter = "none"
	}
	if o.Tracing.SamplePct == nil {
		o.Tracing.SamplePct = ptr(1.0)
	}
	if o.Metrics.Exporter == "" {
		o.Metrics.Exporter = "none"
	}
	if o.Logging.Enabled == nil {
		o.Logging.Enabled = ptr(true)
	}
	if o.Logging.Level == "" {
		o.Logging.Level = "info"
	}
}

// Validate reports the first invalid setting. Errors wrap the sentinels in
// errors.go.
func (c *Config) Validate() error {
	r := c.Retry
	if r.Retries != nil && *r.Retries < 0 {
		return fmt.Errorf("%w: retries must be non-negative, got %d", ErrInvalidRetry, *r.Retries)
	}
	if r.BaseDelayMs < 0 || r.MaxDelayMs < 0 {
		return fmt.Errorf("%w: delays must be non-negative", ErrInvalidRetry)
	}
	if r.MaxDelayMs < r.BaseDelayMs {
		return fmt.Errorf("%w: max_delay_ms (%d) is below base_delay_ms (%d)", ErrInvalidRetry, r.MaxDelayMs, r.BaseDelayMs)
	}

	cb := c.CircuitBreaker
	if cb.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be positive, got %d", ErrInvalidCircuitBreaker, cb.Threshold)
	}
	if cb.WindowMs <= 0 || cb.CooldownMs <= 0 {
		return fmt.Errorf("%w: window_ms and cooldown_ms must be positive", ErrInvalidCircuitBreaker)
	}

	if c.Limiter.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidLimiter, c.Limiter.Concurrency)
	}
	if c.Deadline.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeout_ms must be positive, got %d", ErrInvalidDeadline, c.Deadline.TimeoutMs)
	}

	rl := c.RateLimit
	if rl.Rate < 0 {
		return fmt.Errorf("%w: rate must be non-negative", ErrInvalidRateLimit)
	}
	if rl.Enabled() && (rl.Burst < 1 || rl.MaxWaitMs < 1) {
		return fmt.Errorf("%w: burst and max_wait_ms must be positive when rate is set", ErrInvalidRateLimit)
	}

	oc := c.ObserveConfig()
	if err := oc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidObserve, err)
	}
	return nil
}

// RetryConfig converts the retry section.
func (c *Config) RetryConfig() resilience.RetryConfig {
	rc := resilience.RetryConfig{
		BaseDelay: ms(c.Retry.BaseDelayMs),
		MaxDelay:  ms(c.Retry.MaxDelayMs),
	}
	if c.Retry.Retries != nil {
		rc.Retries = *c.Retry.Retries
	}
	if c.Retry.Jitter != nil {
		rc.Jitter = *c.Retry.Jitter
	}
	return rc
}

// CircuitBreakerConfig converts the circuit_breaker section.
func (c *Config) CircuitBreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Name:      c.CircuitBreaker.Name,
		Threshold: c.CircuitBreaker.Threshold,
		Window:    ms(c.CircuitBreaker.WindowMs),
		Cooldown:  ms(c.CircuitBreaker.CooldownMs),
	}
}

// LimiterConfig converts the limiter section.
func (c *Config) LimiterConfig() resilience.LimiterConfig {
	return resilience.LimiterConfig{Concurrency: c.Limiter.Concurrency}
}

// DeadlineConfig converts the deadline section.
func (c *Config) DeadlineConfig() resilience.DeadlineConfig {
	return resilience.DeadlineConfig{
		Timeout:   ms(c.Deadline.TimeoutMs),
		Permanent: c.Deadline.Permanent,
	}
}

// RateLimiterConfig converts the rate_limit section.
func (c *Config) RateLimiterConfig() resilience.RateLimiterConfig {
	return resilience.RateLimiterConfig{
		Rate:        c.RateLimit.Rate,
		Burst:       c.RateLimit.Burst,
		WaitOnLimit: c.RateLimit.Wait,
		MaxWait:     ms(c.RateLimit.MaxWaitMs),
	}
}

// ObserveConfig converts the observe section.
func (c *Config) ObserveConfig() observe.Config {
	o := c.Observe
	samplePct := 1.0
	if o.Tracing.SamplePct != nil {
		samplePct = *o.Tracing.SamplePct
	}
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: samplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled == nil || *o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func ptr[T any](v T) *T {
	return &v
}
