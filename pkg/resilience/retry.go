package resilience

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// RetryConfig controls Retry's attempt count and backoff schedule.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Base         float64
	// Retriable reports whether err should trigger another attempt. A nil
	// Retriable retries every non-nil error. context.Canceled and
	// context.DeadlineExceeded are never retried.
	Retriable func(error) bool
}

// DefaultRetryConfig gives three attempts with exponential backoff starting
// at 200ms, capped at 5s, base 2.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Base:         2,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Base <= 0 {
		c.Base = 2
	}
	return c
}

// delayForAttempt returns the sleep between attempt i and i+1 (1-indexed),
// i.e. delayForAttempt(1) is the wait after the first failed attempt.
func delayForAttempt(cfg RetryConfig, attempt int) time.Duration {
	d := float64(cfg.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= cfg.Base
	}
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

// Retry calls fn up to cfg.MaxAttempts times, labeled name for metrics.
// metrics may be nil to skip instrumentation. Only attempts after the first
// that actually happen (i.e. real retries) increment the retry-attempts
// counter, matching spec §4.A.
func Retry(ctx context.Context, metrics *Metrics, name string, cfg RetryConfig, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if metrics != nil {
				metrics.RetryAttempts.IncLabeled(map[string]string{
					"function": name,
					"attempt":  strconv.Itoa(attempt),
				})
			}
			delay := delayForAttempt(cfg, attempt-1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if cfg.Retriable != nil && !cfg.Retriable(lastErr) {
			return lastErr
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}
	return lastErr
}
