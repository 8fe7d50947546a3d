package filter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimit defines a single rate limit: max inserts per time window.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// RateLimitFilter enforces a global insert rate using a sliding window.
type RateLimitFilter struct {
	limit RateLimit
	now   func() time.Time

	mu         sync.Mutex
	timestamps []time.Time
}

// NewRateLimitFilter creates a new rate limit filter.
func NewRateLimitFilter(limit RateLimit) *RateLimitFilter {
	return &RateLimitFilter{limit: limit, now: time.Now}
}

func (f *RateLimitFilter) Name() string { return "rate_limit" }

func (f *RateLimitFilter) Process(_ context.Context, fc *FilterContext) error {
	if fc.Halted {
		return nil
	}

	if !f.allow(f.now()) {
		fc.deny("rate_limit:global", fmt.Sprintf("rate limit exceeded: max %d per %s",
			f.limit.Max, f.limit.Window))
	}
	return nil
}

// allow checks if a request is allowed and records it when it is.
func (f *RateLimitFilter) allow(now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Remove expired timestamps
	cutoff := now.Add(-f.limit.Window)
	valid := 0
	for _, ts := range f.timestamps {
		if ts.After(cutoff) {
			f.timestamps[valid] = ts
			valid++
		}
	}
	f.timestamps = f.timestamps[:valid]

	if len(f.timestamps) >= f.limit.Max {
		return false
	}

	f.timestamps = append(f.timestamps, now)
	return true
}

// Reset clears the window (useful for testing).
func (f *RateLimitFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timestamps = nil
}
