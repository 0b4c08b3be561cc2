package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	reachable map[string]bool
	ip        map[string]string
}

func (f *fakeProber) Resolve(_ context.Context, hostname string) (string, []string, error) {
	ip, ok := f.ip[hostname]
	if !ok {
		return "", nil, errors.New("no such host")
	}
	return ip, []string{ip}, nil
}

func (f *fakeProber) Reachable(_ context.Context, hostname string, _ int, _ time.Duration) bool {
	return f.reachable[hostname]
}

type fakeRunner struct {
	responses map[string]string
	failUntil int
	calls     int
}

func (f *fakeRunner) Run(_ context.Context, _, command string, _ time.Duration) (string, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return "", errors.New("transient ssh error")
	}
	return f.responses[command], nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	cfg.RequestsPerSecond = 1000
	cfg.BurstSize = 1000
	return cfg
}

func TestScanHostsUsesCacheUnlessForced(t *testing.T) {
	resetSharedRateLimiterForTest()
	defer resetSharedRateLimiterForTest()

	cache := NewMemoryCache()
	cache.Set(context.Background(), "web-1", string(KindBasic), map[string]any{"cached": true}, time.Minute)

	prober := &fakeProber{reachable: map[string]bool{"web-1": true}, ip: map[string]string{"web-1": "10.0.0.1"}}
	s := New(testConfig(), cache, nil)
	WithProber(s, prober)

	results := s.ScanHosts(context.Background(), []string{"web-1"}, KindBasic, false, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Data["cached"].(bool))
}

func TestScanHostsForceBypassesCache(t *testing.T) {
	resetSharedRateLimiterForTest()
	defer resetSharedRateLimiterForTest()

	cache := NewMemoryCache()
	cache.Set(context.Background(), "web-1", string(KindBasic), map[string]any{"cached": true}, time.Minute)

	prober := &fakeProber{reachable: map[string]bool{"web-1": true}, ip: map[string]string{"web-1": "10.0.0.1"}}
	s := New(testConfig(), cache, nil)
	WithProber(s, prober)

	results := s.ScanHosts(context.Background(), []string{"web-1"}, KindBasic, true, nil)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Data["cached"])
	assert.Equal(t, "10.0.0.1", results[0].Data["ip"])
}

func TestScanHostUnreachableSkipsSSH(t *testing.T) {
	resetSharedRateLimiterForTest()
	defer resetSharedRateLimiterForTest()

	prober := &fakeProber{reachable: map[string]bool{"db-1": false}, ip: map[string]string{"db-1": "10.0.0.2"}}
	s := New(testConfig(), NewMemoryCache(), nil)
	WithProber(s, prober)

	result := s.ScanHost(context.Background(), "db-1", KindFull, true)
	assert.True(t, result.Success)
	assert.Equal(t, false, result.Data["reachable"])
	assert.Nil(t, result.Data["ssh_connected"])
}

func TestScanSystemKindGathersCommandOutput(t *testing.T) {
	resetSharedRateLimiterForTest()
	defer resetSharedRateLimiterForTest()

	prober := &fakeProber{reachable: map[string]bool{"app-1": true}, ip: map[string]string{"app-1": "10.0.0.3"}}
	runner := &fakeRunner{responses: map[string]string{"uname -r": "6.1.0"}}
	s := New(testConfig(), NewMemoryCache(), runner)
	WithProber(s, prober)

	result := s.scanWithRetry(context.Background(), "app-1", KindSystem)
	assert.True(t, result.Success)
	assert.Equal(t, "6.1.0", result.Data["kernel"])
}

func TestScanWithRetryZeroRetriesOnFirstTrySuccess(t *testing.T) {
	resetSharedRateLimiterForTest()
	defer resetSharedRateLimiterForTest()

	prober := &fakeProber{reachable: map[string]bool{"app-1": true}, ip: map[string]string{"app-1": "10.0.0.3"}}
	s := New(testConfig(), NewMemoryCache(), nil)
	WithProber(s, prober)

	result := s.scanWithRetry(context.Background(), "app-1", KindBasic)
	require.True(t, result.Success)
	assert.Equal(t, 0, result.Retries)
}

func TestOpenPortsEmptyOutputYieldsNoPorts(t *testing.T) {
	resetSharedRateLimiterForTest()
	defer resetSharedRateLimiterForTest()

	runner := &fakeRunner{responses: map[string]string{}}
	s := New(testConfig(), NewMemoryCache(), runner)
	ports := s.openPorts(context.Background(), "app-1")
	assert.Empty(t, ports)
}
