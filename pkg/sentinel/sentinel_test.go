package sentinel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newCountingChecker() *countingChecker {
	return &countingChecker{calls: make(map[string]int), fail: make(map[string]bool)}
}

func (c *countingChecker) Run(_ context.Context, check HealthCheck) CheckResult {
	c.mu.Lock()
	c.calls[check.Name]++
	fail := c.fail[check.Name]
	c.mu.Unlock()

	return CheckResult{Check: check, Success: !fail, Timestamp: time.Now()}
}

func (c *countingChecker) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func TestStartRefusesWithoutChecks(t *testing.T) {
	s := New(newCountingChecker(), NewAlertManager(false, nil, nil, nil))
	assert.False(t, s.Start(context.Background()))
	assert.Equal(t, StatusStopped, s.Status())
}

func TestStartRunsDueChecksAndStopStops(t *testing.T) {
	checker := newCountingChecker()
	s := New(checker, NewAlertManager(false, nil, nil, nil))
	s.AddCheck(HealthCheck{Name: "c1", Target: "host1", IntervalSeconds: 1, Enabled: true, ThresholdFailures: 1})

	require.True(t, s.Start(context.Background()))
	assert.Equal(t, StatusRunning, s.Status())

	require.Eventually(t, func() bool { return checker.count("c1") >= 1 }, 3*time.Second, 50*time.Millisecond)

	assert.True(t, s.Stop())
	assert.Equal(t, StatusStopped, s.Status())
}

func TestPauseSuspendsSchedulingLoop(t *testing.T) {
	checker := newCountingChecker()
	s := New(checker, NewAlertManager(false, nil, nil, nil))
	s.AddCheck(HealthCheck{Name: "c1", Target: "host1", IntervalSeconds: 1, Enabled: true, ThresholdFailures: 1})
	require.True(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return checker.count("c1") >= 1 }, 3*time.Second, 50*time.Millisecond)
	require.True(t, s.Pause())
	assert.Equal(t, StatusPaused, s.Status())

	countAtPause := checker.count("c1")
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, countAtPause, checker.count("c1"))

	require.True(t, s.Resume())
	defer s.Stop()
	require.Eventually(t, func() bool { return checker.count("c1") > countAtPause }, 3*time.Second, 50*time.Millisecond)
}

func TestDisabledCheckNeverRuns(t *testing.T) {
	checker := newCountingChecker()
	s := New(checker, NewAlertManager(false, nil, nil, nil))
	s.AddCheck(HealthCheck{Name: "disabled", Target: "host1", IntervalSeconds: 1, Enabled: false, ThresholdFailures: 1})
	s.AddCheck(HealthCheck{Name: "enabled", Target: "host1", IntervalSeconds: 1, Enabled: true, ThresholdFailures: 1})

	require.True(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return checker.count("enabled") >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, 0, checker.count("disabled"))
}

func TestHistoryIsBoundedTo100(t *testing.T) {
	s := New(newCountingChecker(), NewAlertManager(false, nil, nil, nil))
	s.AddCheck(HealthCheck{Name: "c1", Target: "host1", IntervalSeconds: 1, ThresholdFailures: 1})

	for i := 0; i < 150; i++ {
		s.recordResult(CheckResult{Check: HealthCheck{Name: "c1"}, Success: true, Timestamp: time.Now()})
	}
	assert.Len(t, s.History("c1"), maxResultHistory)
}

func TestRemoveCheckReportsExistence(t *testing.T) {
	s := New(newCountingChecker(), NewAlertManager(false, nil, nil, nil))
	s.AddCheck(HealthCheck{Name: "c1"})
	assert.True(t, s.RemoveCheck("c1"))
	assert.False(t, s.RemoveCheck("c1"))
}

func TestErrorStatusOnPanickingCheck(t *testing.T) {
	var panicked atomic.Bool
	s := New(checkerFunc(func(ctx context.Context, check HealthCheck) CheckResult {
		panicked.Store(true)
		panic("boom")
	}), NewAlertManager(false, nil, nil, nil))
	s.AddCheck(HealthCheck{Name: "c1", Target: "host1", IntervalSeconds: 1, Enabled: true, ThresholdFailures: 1})

	require.True(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return panicked.Load() }, 3*time.Second, 50*time.Millisecond)
	require.Eventually(t, func() bool { return s.Status() == StatusError }, 3*time.Second, 50*time.Millisecond)
}

type checkerFunc func(ctx context.Context, check HealthCheck) CheckResult

func (f checkerFunc) Run(ctx context.Context, check HealthCheck) CheckResult { return f(ctx, check) }
