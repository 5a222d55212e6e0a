// Package ratelimit throttles booking submissions per identity using
// minute, hour and day sliding windows.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"rental-portal/internal/config"

	"github.com/gin-gonic/gin"
)

// RateLimiter tracks and enforces request rate limits per key
type RateLimiter struct {
	requestsPerMinute int
	requestsPerHour   int
	requestsPerDay    int
	enabled           bool

	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

// Request tracking for one key
type window struct {
	minute []time.Time
	hour   []time.Time
	day    []time.Time
}

// NewRateLimiter creates a new rate limiter with the given limits.
// A zero limit disables that window.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: cfg.RequestsPerMinute,
		requestsPerHour:   cfg.RequestsPerHour,
		requestsPerDay:    cfg.RequestsPerDay,
		enabled:           cfg.Enabled,
		windows:           make(map[string]*window),
		now:               time.Now,
	}
}

// AllowRequest checks if a request for key is allowed and records it if so
func (rl *RateLimiter) AllowRequest(key string) bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok {
		w = &window{}
		rl.windows[key] = w
	}
	w.cleanup(now)

	if rl.requestsPerMinute > 0 && len(w.minute) >= rl.requestsPerMinute {
		return false
	}
	if rl.requestsPerHour > 0 && len(w.hour) >= rl.requestsPerHour {
		return false
	}
	if rl.requestsPerDay > 0 && len(w.day) >= rl.requestsPerDay {
		return false
	}

	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
	w.day = append(w.day, now)
	return true
}

// cleanup removes expired entries from the time windows
func (w *window) cleanup(now time.Time) {
	w.minute = filterTimes(w.minute, now.Add(-time.Minute))
	w.hour = filterTimes(w.hour, now.Add(-time.Hour))
	w.day = filterTimes(w.day, now.Add(-24*time.Hour))
}

func (w *window) empty() bool {
	return len(w.day) == 0
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// Sweep drops keys with no requests in the last day and returns how many
// keys remain tracked.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		w.cleanup(now)
		if w.empty() {
			delete(rl.windows, key)
		}
	}
	return len(rl.windows)
}

// GetStats returns current rate limiter statistics for key
func (rl *RateLimiter) GetStats(key string) Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok {
		w = &window{}
	}
	w.cleanup(rl.now())

	return Stats{
		Enabled:             true,
		RequestsLastMinute:  len(w.minute),
		RequestsLastHour:    len(w.hour),
		RequestsLastDay:     len(w.day),
		LimitPerMinute:      rl.requestsPerMinute,
		LimitPerHour:        rl.requestsPerHour,
		LimitPerDay:         rl.requestsPerDay,
		RemainingThisMinute: max(0, rl.requestsPerMinute-len(w.minute)),
		RemainingThisHour:   max(0, rl.requestsPerHour-len(w.hour)),
		RemainingThisDay:    max(0, rl.requestsPerDay-len(w.day)),
	}
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

// Reset clears all tracked requests
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.windows = make(map[string]*window)
}

// Middleware rejects requests over the limit with 429. key extracts the
// throttling key; onLimited, if set, is called for every rejection.
func Middleware(rl *RateLimiter, key func(*gin.Context) string, onLimited func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.AllowRequest(key(c)) {
			c.Next()
			return
		}
		if onLimited != nil {
			onLimited()
		}
		c.Header("Retry-After", "60")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{"kind": "rate_limited", "message": "too many booking requests, try again later"},
		})
	}
}
