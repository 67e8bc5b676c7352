// Package ratelimit slows down callers: a sliding-window limiter for the
// mutating API routes and a lockout throttle for login attempts.
package ratelimit

import (
	"sync"
	"time"
)

// window counts the hits of one sliding span. A non-positive limit disables it.
type window struct {
	limit int
	span  time.Duration
	hits  []time.Time
}

// expire drops hits older than the span.
func (w *window) expire(now time.Time) {
	cutoff := now.Add(-w.span)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept
}

func (w *window) full() bool {
	return w.limit > 0 && len(w.hits) >= w.limit
}

// wait is how long until the window frees a slot.
func (w *window) wait(now time.Time) time.Duration {
	if !w.full() {
		return 0
	}
	oldest := w.hits[len(w.hits)-w.limit]
	return max(0, oldest.Add(w.span).Sub(now))
}

func (w *window) remaining() int {
	return max(0, w.limit-len(w.hits))
}

// RateLimiter enforces per-minute, per-hour and per-day request limits over
// sliding windows. A zero hour or day limit disables that window.
type RateLimiter struct {
	enabled bool
	now     func() time.Time

	mu                  sync.Mutex
	minute, hour, daily window
}

// NewRateLimiter creates a new rate limiter with the given limits
func NewRateLimiter(requestsPerMinute, requestsPerHour, requestsPerDay int, enabled bool) *RateLimiter {
	return &RateLimiter{
		enabled: enabled,
		now:     time.Now,
		minute:  window{limit: requestsPerMinute, span: time.Minute},
		hour:    window{limit: requestsPerHour, span: time.Hour},
		daily:   window{limit: requestsPerDay, span: 24 * time.Hour},
	}
}

func (rl *RateLimiter) windows() []*window {
	return []*window{&rl.minute, &rl.hour, &rl.daily}
}

// AllowRequest records a request and reports whether it fits the limits.
// Rejected requests are not recorded.
func (rl *RateLimiter) AllowRequest() bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, w := range rl.windows() {
		w.expire(now)
		if w.full() {
			return false
		}
	}
	for _, w := range rl.windows() {
		w.hits = append(w.hits, now)
	}
	return true
}

// RetryAfter returns how long until the next request would be allowed.
func (rl *RateLimiter) RetryAfter() time.Duration {
	if !rl.enabled {
		return 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	var wait time.Duration
	for _, w := range rl.windows() {
		w.expire(now)
		wait = max(wait, w.wait(now))
	}
	return wait
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled             bool `json:"enabled"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	RequestsLastDay     int  `json:"requests_last_day"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	LimitPerDay         int  `json:"limit_per_day"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
	RemainingThisDay    int  `json:"remaining_this_day"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, w := range rl.windows() {
		w.expire(now)
	}

	return Stats{
		Enabled:             true,
		RequestsLastMinute:  len(rl.minute.hits),
		RequestsLastHour:    len(rl.hour.hits),
		RequestsLastDay:     len(rl.daily.hits),
		LimitPerMinute:      rl.minute.limit,
		LimitPerHour:        rl.hour.limit,
		LimitPerDay:         rl.daily.limit,
		RemainingThisMinute: rl.minute.remaining(),
		RemainingThisHour:   rl.hour.remaining(),
		RemainingThisDay:    rl.daily.remaining(),
	}
}

// Reset clears all tracked requests.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for _, w := range rl.windows() {
		w.hits = nil
	}
}
