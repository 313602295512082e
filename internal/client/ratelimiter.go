package client

import (
	"golang.org/x/time/rate"
)

// NewRateLimiter builds a per-client limiter from a "requests per 60 seconds"
// budget (spec §4.1). A non-positive budget yields a no-op (effectively
// infinite) limiter, matching the "N ≤ 0 ⇒ no-op" rule.
func NewRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	// Burst equal to the per-minute budget lets a client spend its whole
	// minute's allowance immediately after a long idle period, then settles
	// into the steady per-second rate.
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
}
