package sshpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type fakeDialer struct {
	dialCalls int
	err       error
}

func (f *fakeDialer) Dial(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	f.dialCalls++
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeDialer) DialThrough(ctx context.Context, jump *ssh.Client, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	f.dialCalls++
	return nil, f.err
}

func TestCheckCircuitOpensAfterThreshold(t *testing.T) {
	p := NewPoolWithDialer(PoolConfig{FailureThreshold: 2, CircuitBreakerTimeout: 50 * time.Millisecond}, &fakeDialer{})

	assert.NoError(t, p.checkCircuit("root@h1"))
	p.recordFailure("root@h1", errors.New("connection refused"))
	assert.NoError(t, p.checkCircuit("root@h1"), "below threshold, still allowed")

	p.recordFailure("root@h1", errors.New("connection refused"))
	assert.ErrorIs(t, p.checkCircuit("root@h1"), ErrCircuitOpen)

	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, p.checkCircuit("root@h1"), "timeout elapsed, circuit clears")
}

func TestPermanentDNSFailureBypassesThreshold(t *testing.T) {
	p := NewPoolWithDialer(PoolConfig{FailureThreshold: 5}, &fakeDialer{})

	p.recordFailure("root@ghost", errors.New("dial tcp: lookup ghost: no such host"))
	assert.ErrorIs(t, p.checkCircuit("root@ghost"), ErrPermanentFailure)
}

func TestPermanentFailureCountForcesCircuitPermanent(t *testing.T) {
	p := NewPoolWithDialer(PoolConfig{FailureThreshold: 1000, PermanentFailureCount: 3}, &fakeDialer{})

	for i := 0; i < 3; i++ {
		p.recordFailure("root@flaky", errors.New("i/o timeout"))
	}
	assert.ErrorIs(t, p.checkCircuit("root@flaky"), ErrPermanentFailure)
}

func TestGetConnectionRecordsFailureAndOpensCircuit(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	p := NewPoolWithDialer(PoolConfig{FailureThreshold: 2, CircuitBreakerTimeout: time.Minute}, dialer)
	opts := ConnectOptions{User: "root", Host: "10.0.0.9"}

	_, err := p.GetConnection(context.Background(), opts, &ssh.ClientConfig{}, nil)
	require.Error(t, err)
	_, err = p.GetConnection(context.Background(), opts, &ssh.ClientConfig{}, nil)
	require.Error(t, err)
	assert.Equal(t, 2, dialer.dialCalls)

	// Third call should short-circuit on the open breaker without dialing again.
	_, err = p.GetConnection(context.Background(), opts, &ssh.ClientConfig{}, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, dialer.dialCalls, "breaker must reject before dialing")
}

func TestGetConnectionSuccessClearsFailureRecord(t *testing.T) {
	dialer := &fakeDialer{}
	p := NewPoolWithDialer(PoolConfig{FailureThreshold: 1}, dialer)
	opts := ConnectOptions{User: "root", Host: "10.0.0.9"}

	p.recordFailure(opts.key(), errors.New("connection refused"))
	require.ErrorIs(t, p.checkCircuit(opts.key()), ErrCircuitOpen)

	// Force the breaker timeout to have elapsed so the attempt is allowed.
	p.failuresMu.Lock()
	p.failures[opts.key()].timestamp = time.Now().Add(-time.Hour)
	p.failuresMu.Unlock()

	_, err := p.GetConnection(context.Background(), opts, &ssh.ClientConfig{}, nil)
	require.NoError(t, err)
	assert.NoError(t, p.checkCircuit(opts.key()))
}

func TestIsPermanentDNSFailure(t *testing.T) {
	assert.True(t, isPermanentDNSFailure(errors.New("dial tcp: lookup x.invalid: no such host")))
	assert.False(t, isPermanentDNSFailure(errors.New("dial tcp 10.0.0.1:22: i/o timeout")))
}
