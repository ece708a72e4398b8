package auth

import (
	"sync"
	"time"
)

// RateLimiter throttles login attempts per client IP and login name within
// a fixed window.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	max      int
	window   time.Duration
	lockout  time.Duration
	now      func() time.Time
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// NewRateLimiter allows max failures per window before locking the pair
// out for lockout. Non-positive values take the defaults 5, 15m and 30m.
func NewRateLimiter(max int, window, lockout time.Duration) *RateLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockout <= 0 {
		lockout = 30 * time.Minute
	}
	return &RateLimiter{
		attempts: make(map[string]*attemptRecord),
		max:      max,
		window:   window,
		lockout:  lockout,
		now:      time.Now,
	}
}

func limiterKey(ip, login string) string {
	return ip + "|" + login
}

// Allow reports whether another attempt may be made, and if not, how long
// until it may.
func (rl *RateLimiter) Allow(ip, login string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[limiterKey(ip, login)]
	if !ok {
		return true, 0
	}
	now := rl.now()
	if now.Before(rec.lockedUntil) {
		return false, rec.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a failed attempt and reports whether the pair is
// now locked out.
func (rl *RateLimiter) RecordFailure(ip, login string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	key := limiterKey(ip, login)
	rec, ok := rl.attempts[key]
	if !ok || now.Sub(rec.firstAttempt) > rl.window {
		rec = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = rec
	}
	rec.count++
	if rec.count >= rl.max {
		rec.lockedUntil = now.Add(rl.lockout)
		return true
	}
	return false
}

// RecordSuccess forgets the pair's failures.
func (rl *RateLimiter) RecordSuccess(ip, login string) {
	rl.mu.Lock()
	delete(rl.attempts, limiterKey(ip, login))
	rl.mu.Unlock()
}

// prune drops records whose window and lockout have both passed.
func (rl *RateLimiter) prune(now time.Time) {
	for key, rec := range rl.attempts {
		if now.Sub(rec.firstAttempt) > rl.window && !now.Before(rec.lockedUntil) {
			delete(rl.attempts, key)
		}
	}
}
