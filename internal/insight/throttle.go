package insight

import (
	"sync"
	"time"
)

// AlertCategory identifies one class of operator alert.
type AlertCategory string

const (
	// AlertFallbackUsed means a non-primary provider produced the text.
	AlertFallbackUsed AlertCategory = "fallback_used"
	// AlertAllProvidersFailed means the deterministic template was used
	// because every provider failed.
	AlertAllProvidersFailed AlertCategory = "all_providers_failed"
)

// Throttler rate-limits operator alerts per category. Scope is global: a
// provider-wide outage during a batch run produces at most one alert per
// category per interval, regardless of how many users were affected.
type Throttler struct {
	mu        sync.Mutex
	intervals map[AlertCategory]time.Duration
	lastSent  map[AlertCategory]time.Time
	now       func() time.Time
}

// ThrottlerOption configures a Throttler.
type ThrottlerOption func(*Throttler)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) ThrottlerOption {
	return func(t *Throttler) {
		t.now = now
	}
}

// NewThrottler creates a throttler with per-category minimum intervals.
// Categories missing from the map are never throttled.
func NewThrottler(intervals map[AlertCategory]time.Duration, opts ...ThrottlerOption) *Throttler {
	t := &Throttler{
		intervals: intervals,
		lastSent:  make(map[AlertCategory]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allow reports whether an alert of the given category may be sent now and,
// if so, records it. The check and the record happen under one lock so
// near-simultaneous callers cannot both pass for the same category.
func (t *Throttler) Allow(category AlertCategory) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	interval := t.intervals[category]
	if last, ok := t.lastSent[category]; ok && interval > 0 {
		if now.Sub(last) < interval {
			return false
		}
	}
	t.lastSent[category] = now
	return true
}
