// Package ratelimit enforces a per-integration request budget on
// webhook ingestion, returning a retry-after duration when exhausted.
package ratelimit

import "context"

// Limiter gates requests for a key (an integration id) against a
// fixed-window counter: a set number of requests per window, reset when
// the window ends. Grounded on telemetry/ratelimiter.go's single-gate
// Allow() pattern, generalized from one global interval gate to a
// per-key window, since spec.md §6 needs independent 429s per
// integration rather than one global throttle.
type Limiter interface {
	// Allow reports whether a request for key may proceed. If not,
	// retryAfter is how long the caller should wait before trying again.
	Allow(ctx context.Context, key string) (ok bool, retryAfter int, err error)
}
