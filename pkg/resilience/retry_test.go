package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlya/merlya-core/pkg/resilience"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	m := resilience.NewMetrics()
	attempts := 0
	err := resilience.Retry(context.Background(), m, "fetch", resilience.RetryConfig{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Base:         2,
	}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// Two real retries (attempts 2 and 3) should be counted, not the first try.
	assert.Equal(t, float64(2), m.RetryAttempts.Value())
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	sentinel := errors.New("persistent")
	attempts := 0
	err := resilience.Retry(context.Background(), nil, "fetch", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}, func(context.Context) error {
		attempts++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, attempts)
}

func TestRetryNonRetriableStopsImmediately(t *testing.T) {
	attempts := 0
	err := resilience.Retry(context.Background(), nil, "fetch", resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retriable: func(err error) bool {
			return false
		},
	}, func(context.Context) error {
		attempts++
		return errors.New("auth failure")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
