// Package failure provides the classified error type shared by the
// resilience toolkit.
//
// A Failure is a tagged variant: its Kind tells callers (and the retry
// layer) how to treat it, while Code, Meta and Cause carry the details.
// Causes form a simple chain; rendering a chain always terminates.
//
//	err := failure.Transient("upstream busy", failure.WithCode("UPSTREAM_BUSY"))
//	if failure.IsTransient(err) {
//	    // safe to retry
//	}
//
// Only failures explicitly tagged as transient are retried. Plain Go errors
// are treated as permanent; wrap them with Wrap to opt in to retries.
package failure
