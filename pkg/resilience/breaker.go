// Package resilience provides the circuit breaker, retry, and metrics
// primitives shared by every subsystem that calls out to an unreliable
// dependency: SSH hosts, CI platform CLIs, LLM providers.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when a call is rejected without invoking the
// target because the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerConfig tunes a CircuitBreaker. Zero values fall back to
// DefaultBreakerConfig.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// DefaultBreakerConfig matches spec §4.A's stated defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	return c
}

// CircuitBreaker guards a single dependency with a closed/open/half-open
// state machine. Safe for concurrent use; state transitions are serialized
// under a mutex, but the guarded call itself always runs outside the lock.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// NewCircuitBreaker creates a closed breaker for the named dependency.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		state: StateClosed,
	}
}

// State returns the breaker's current state, transitioning open→half_open
// first if the recovery timeout has elapsed. This mirrors spec §4.A: the
// open→half_open move happens "on the next call", not on a timer.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *CircuitBreaker) stateLocked() State {
	if b.state == StateOpen && time.Since(b.lastFailureTime) >= b.cfg.RecoveryTimeout {
		b.state = StateHalfOpen
		b.successCount = 0
		slog.Info("circuit breaker transitioned to half_open", "breaker", b.name)
	}
	return b.state
}

// Call invokes fn, guarded by the breaker. It never holds the mutex while
// fn runs.
func (b *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	b.mu.Lock()
	state := b.stateLocked()
	if state == StateOpen {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailureLocked(err)
	} else {
		b.onSuccessLocked()
	}
	return err
}

func (b *CircuitBreaker) onSuccessLocked() {
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			slog.Info("circuit breaker closed", "breaker", b.name)
		}
	default:
		b.failureCount = 0
	}
}

func (b *CircuitBreaker) onFailureLocked(err error) {
	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.lastFailureTime = time.Now()
		slog.Warn("circuit breaker reopened after half_open failure", "breaker", b.name, "error", err)
	default:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.lastFailureTime = time.Now()
			slog.Warn("circuit breaker opened", "breaker", b.name, "failures", b.failureCount, "error", err)
		}
	}
}

// Counts returns the current failure/success counters, mainly for tests and
// the /metrics surface.
func (b *CircuitBreaker) Counts() (failures, successes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount, b.successCount
}

// Reset forces the breaker back to closed with zeroed counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
}
