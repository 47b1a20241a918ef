// Package config loads resilience policies from YAML.
//
// A policy file names the retry, circuit breaker, limiter, deadline, rate
// limit and observability settings for one protected dependency:
//
//	retry:           {retries: 3, base_delay_ms: 100, max_delay_ms: 2000, jitter: true}
//	circuit_breaker: {name: users, threshold: 5, window_ms: 60000, cooldown_ms: 30000}
//	limiter:         {concurrency: 4}
//	deadline:        {timeout_ms: 1000}
//	rate_limit:      {rate: 50, burst: 10}
//	observe:
//	  service_name: ${SERVICE_NAME}
//	  logging: {enabled: true, level: info}
//
// ${VAR} references are expanded before parsing and a missing variable is
// an error; $$ produces a literal dollar sign. Unknown keys are rejected.
// Omitted values take the same defaults as the resilience constructors.
//
// The converter methods turn a loaded Config into the resilience and
// observe configuration types, and NewExecutor builds the full composition.
package config
