package ratelimit

import (
	"errors"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// ErrRateLimitExceeded is returned to callers when the venue's admission
// window is exhausted. The order is expected to be re-queued, not dropped.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Limiter implements a token bucket over a rolling window, one instance per
// venue. Safe for concurrent use from every order targeting that venue.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	now func() time.Time
}

// Snapshot is a point-in-time view of the limiter state, for logging and
// operator inspection.
type Snapshot struct {
	Tokens     float64
	Capacity   float64
	RefillRate float64
	LastRefill time.Time
}

// New creates a limiter admitting at most capacity acquisitions per window,
// refilled continuously at capacity/window.
func New(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}

	now := time.Now()
	return &Limiter{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: float64(capacity) / window.Seconds(),
		lastRefill: now,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used by tests to drive refills
// deterministically.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.now = now
	l.lastRefill = now()
	return l
}

// TryAcquire attempts to take one token without blocking.
// Returns true if a token was acquired, false otherwise.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens >= 1 {
		l.tokens--
		return true
	}

	logger.WithFields(logger.Fields{
		"tokens":   l.tokens,
		"capacity": l.capacity,
	}).Debug("rate limiter rejected acquisition")

	return false
}

// Acquire is TryAcquire with the sentinel error, for call sites that thread
// errors instead of booleans.
func (l *Limiter) Acquire() error {
	if !l.TryAcquire() {
		return ErrRateLimitExceeded
	}
	return nil
}

// Snapshot returns the current state after applying any pending refill.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	return Snapshot{
		Tokens:     l.tokens,
		Capacity:   l.capacity,
		RefillRate: l.refillRate,
		LastRefill: l.lastRefill,
	}
}

// refill adds tokens based on elapsed time. Must be called with the mutex held.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	l.tokens += elapsed * l.refillRate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}

	l.lastRefill = now
}
