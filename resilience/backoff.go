package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// ComputeDelay returns the delay before retry number attempt (1-indexed).
//
// The exponential backoff min(MaxDelay, BaseDelay*2^(attempt-1)) is used as
// is, or scaled into [backoff/2, backoff] when Jitter is set. The result is
// always within [0, MaxDelay]. With cfg.Rand set the function is pure.
func ComputeDelay(attempt int, cfg RetryConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := max(cfg.BaseDelay, 0)
	limit := max(cfg.MaxDelay, 0)

	backoff := base
	for i := 1; i < attempt && backoff > 0 && backoff < limit; i++ {
		if backoff > limit/2 {
			backoff = limit
			break
		}
		backoff *= 2
	}
	if backoff > limit {
		backoff = limit
	}

	if !cfg.Jitter || backoff == 0 {
		return backoff
	}

	random := cfg.Rand
	if random == nil {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		random = rand.Float64
	}
	r := min(max(random(), 0), 1)

	// Near MaxInt64 the float product can round past the int64 range.
	d := time.Duration(math.Round(float64(backoff) * (0.5 + r*0.5)))
	return min(max(d, 0), backoff)
}
