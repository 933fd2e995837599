package explain

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter spaces out calls to the AI service and blocks all calls for a
// while after the service reports a rate limit.
type RateLimiter struct {
	mu           sync.Mutex
	minInterval  time.Duration
	lastCall     time.Time
	blockedUntil time.Time

	Now func() time.Time
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{minInterval: minInterval, Now: time.Now}
}

// Allow reserves a call slot. It returns an error wrapping ErrRateLimited when
// the limiter is blocked or the previous call was too recent.
func (r *RateLimiter) Allow() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	if now.Before(r.blockedUntil) {
		return fmt.Errorf("%w: blocked for %s", ErrRateLimited, r.blockedUntil.Sub(now).Round(time.Second))
	}
	if !r.lastCall.IsZero() && now.Sub(r.lastCall) < r.minInterval {
		return fmt.Errorf("%w: wait %s", ErrRateLimited, (r.minInterval - now.Sub(r.lastCall)).Round(time.Millisecond))
	}
	r.lastCall = now
	return nil
}

// Block rejects every call for d.
func (r *RateLimiter) Block(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until := r.Now().Add(d)
	if until.After(r.blockedUntil) {
		r.blockedUntil = until
	}
}
