package scanner

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a shared, process-wide token bucket. Acquire computes the
// wait time under lock, then sleeps outside it so concurrent callers aren't
// serialized behind the sleep itself.
type RateLimiter struct {
	mu         sync.Mutex
	rate       float64 // tokens per second
	burst      float64
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a token bucket starting full.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Acquire blocks until a token is available or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	wait, ready := r.advance()
	if ready {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	// Reacquire and consume; may go slightly negative under contention,
	// which is fine and self-corrects on the next refill.
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	r.tokens--
	return nil
}

// advance refills the bucket and, if a token is already available, consumes
// it and returns (0, true). Otherwise it returns the wait duration needed
// before a token frees up, without consuming anything, so the caller can
// sleep outside the lock.
func (r *RateLimiter) advance() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refillLocked()

	if r.tokens >= 1 {
		r.tokens--
		return 0, true
	}

	wait := time.Duration((1 - r.tokens) / r.rate * float64(time.Second))
	return wait, false
}

func (r *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.tokens = min(r.burst, r.tokens+elapsed*r.rate)
	r.lastUpdate = now
}

var (
	sharedLimiterOnce sync.Once
	sharedLimiter     *RateLimiter
)

// SharedRateLimiter returns the process-wide limiter, created once from the
// first caller's rate/burst. Every Scanner defaults to this instance so
// multiple Scanner values can't bypass the global limit by instantiating
// separately.
func SharedRateLimiter(rate float64, burst int) *RateLimiter {
	sharedLimiterOnce.Do(func() {
		sharedLimiter = NewRateLimiter(rate, burst)
	})
	return sharedLimiter
}

// resetSharedRateLimiterForTest clears the singleton. Test-only.
func resetSharedRateLimiterForTest() {
	sharedLimiterOnce = sync.Once{}
	sharedLimiter = nil
}
