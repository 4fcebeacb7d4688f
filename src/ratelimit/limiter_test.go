package ratelimit

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestLimiterCapacity exhausts the bucket and verifies the next acquisition
// is refused without blocking.
func TestLimiterCapacity(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	limiter := New(3, time.Minute).WithClock(func() time.Time { return fixed })

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("acquisition %d should succeed within capacity", i+1)
		}
	}

	if limiter.TryAcquire() {
		t.Fatal("acquisition beyond capacity should be refused")
	}

	if err := limiter.Acquire(); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}

// TestLimiterRefill drives the clock forward and verifies tokens come back
// at capacity/window, never above capacity.
func TestLimiterRefill(t *testing.T) {
	current := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	limiter := New(60, time.Minute).WithClock(func() time.Time { return current })

	for i := 0; i < 60; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("acquisition %d should succeed within capacity", i+1)
		}
	}
	if limiter.TryAcquire() {
		t.Fatal("bucket should be empty")
	}

	// 60 per minute refills one token per second.
	current = current.Add(time.Second)
	if !limiter.TryAcquire() {
		t.Fatal("one token should be available after one second")
	}
	if limiter.TryAcquire() {
		t.Fatal("only one token should have refilled")
	}

	// A long idle period must not overfill the bucket.
	current = current.Add(time.Hour)
	snap := limiter.Snapshot()
	if snap.Tokens != snap.Capacity {
		t.Fatalf("expected tokens capped at capacity %v, got %v", snap.Capacity, snap.Tokens)
	}
}

// TestLimiterConcurrentAcquisition hammers one limiter from many goroutines
// and verifies no more than capacity acquisitions succeed.
func TestLimiterConcurrentAcquisition(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	limiter := New(50, time.Minute).WithClock(func() time.Time { return fixed })

	var granted int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if limiter.TryAcquire() {
					atomic.AddInt64(&granted, 1)
				}
			}
		}()
	}
	wg.Wait()

	if granted != 50 {
		t.Fatalf("expected exactly 50 grants under contention, got %d", granted)
	}
}
