// Package sshpool implements a reusable, authenticated SSH connection pool
// with a per-host circuit breaker and jump-host pivoting, per spec §4.D.
package sshpool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// ConnectOptions configures a single connection attempt.
type ConnectOptions struct {
	User        string
	Host        string
	Port        int
	AuthMethods []ssh.AuthMethod
	// JumpVia, if set, routes the connection through this already-pooled
	// jump-host key ("user@jumphost") using direct-tcpip.
	JumpVia string
}

func (o ConnectOptions) addr() string {
	port := o.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", o.Host, port)
}

func (o ConnectOptions) key() string { return o.User + "@" + o.Host }

// connectionEntry is a pooled, authenticated connection.
type connectionEntry struct {
	client    *ssh.Client
	createdAt time.Time
	lastUsed  time.Time
}

func (e *connectionEntry) alive() bool {
	if e.client == nil {
		return false
	}
	_, _, err := e.client.SendRequest("keepalive@merlya", true, nil)
	return err == nil
}

// failedHostRecord tracks consecutive connection failures for one host.
type failedHostRecord struct {
	timestamp time.Time
	count     int
	err       string
	permanent bool
}

// PoolConfig tunes eviction and circuit behavior.
type PoolConfig struct {
	MaxIdleTime           time.Duration
	FailureThreshold      int
	CircuitBreakerTimeout time.Duration
	// PermanentFailureCount is the consecutive-failure count at or above which a
	// host's circuit is treated as permanent (spec §3: count >= 10).
	PermanentFailureCount int
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxIdleTime <= 0 {
		c.MaxIdleTime = 10 * time.Minute
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.CircuitBreakerTimeout <= 0 {
		c.CircuitBreakerTimeout = 60 * time.Second
	}
	if c.PermanentFailureCount <= 0 {
		c.PermanentFailureCount = 10
	}
	return c
}

// Dialer opens an authenticated SSH connection. Production code uses
// ssh.Dial / ssh.NewClientConn over a jump channel; tests substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
	DialThrough(ctx context.Context, jump *ssh.Client, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}

// netDialer is the production Dialer, using golang.org/x/crypto/ssh directly.
type netDialer struct{}

func (netDialer) Dial(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	return ssh.Dial(network, addr, config)
}

func (netDialer) DialThrough(ctx context.Context, jump *ssh.Client, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := jump.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("direct-tcpip to %s via jump host failed: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake over jump channel failed: %w", err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// Pool is the process-wide SSH connection pool. Safe for concurrent use.
type Pool struct {
	cfg    PoolConfig
	dialer Dialer

	mu      sync.Mutex
	entries map[string]*connectionEntry

	failuresMu sync.Mutex
	failures   map[string]*failedHostRecord
}

// NewPool creates an empty pool using the real SSH dialer.
func NewPool(cfg PoolConfig) *Pool {
	return NewPoolWithDialer(cfg, netDialer{})
}

// NewPoolWithDialer creates an empty pool using a custom Dialer (for tests).
func NewPoolWithDialer(cfg PoolConfig, dialer Dialer) *Pool {
	return &Pool{
		cfg:      cfg.withDefaults(),
		dialer:   dialer,
		entries:  make(map[string]*connectionEntry),
		failures: make(map[string]*failedHostRecord),
	}
}

// GetConnection implements spec §4.D's get_connection algorithm: circuit
// check outside the pool lock, reuse-or-evict under the lock, dial on miss.
func (p *Pool) GetConnection(ctx context.Context, opts ConnectOptions, config *ssh.ClientConfig, jump *Pool) (*ssh.Client, error) {
	key := opts.key()

	// 1. Circuit breaker check, outside the pool lock.
	if err := p.checkCircuit(key); err != nil {
		return nil, err
	}

	// 2. Reuse under the pool lock.
	if client, ok := p.tryReuse(key); ok {
		return client, nil
	}

	// 3. No live entry: dial a new connection.
	var client *ssh.Client
	var err error
	if opts.JumpVia != "" && jump != nil {
		var jumpClient *ssh.Client
		jumpClient, err = jump.reuseOrDialRaw(ctx, opts.JumpVia, config)
		if err == nil {
			client, err = p.dialer.DialThrough(ctx, jumpClient, opts.addr(), config)
		}
	} else {
		client, err = p.dialer.Dial(ctx, "tcp", opts.addr(), config)
	}

	if err != nil {
		p.recordFailure(key, err)
		return nil, fmt.Errorf("ssh connect to %s failed: %w", key, err)
	}

	p.store(key, client)
	p.clearFailure(key)
	return client, nil
}

// reuseOrDialRaw is used internally when this pool itself is acting as a
// jump host for another pool's connection.
func (p *Pool) reuseOrDialRaw(ctx context.Context, key string, config *ssh.ClientConfig) (*ssh.Client, error) {
	if client, ok := p.tryReuse(key); ok {
		return client, nil
	}
	_, host, _ := strings.Cut(key, "@")
	client, err := p.dialer.Dial(ctx, "tcp", host+":22", config)
	if err != nil {
		p.recordFailure(key, err)
		return nil, err
	}
	p.store(key, client)
	p.clearFailure(key)
	return client, nil
}

func (p *Pool) tryReuse(key string) (*ssh.Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.lastUsed) >= p.cfg.MaxIdleTime || !entry.alive() {
		delete(p.entries, key)
		return nil, false
	}
	entry.lastUsed = time.Now()
	return entry.client, true
}

func (p *Pool) store(key string, client *ssh.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = &connectionEntry{client: client, createdAt: time.Now(), lastUsed: time.Now()}
}

// checkCircuit returns ErrCircuitOpen or ErrPermanentFailure if key's
// failure record forbids a new attempt right now.
func (p *Pool) checkCircuit(key string) error {
	p.failuresMu.Lock()
	defer p.failuresMu.Unlock()

	rec, ok := p.failures[key]
	if !ok {
		return nil
	}
	if rec.permanent || rec.count >= p.cfg.PermanentFailureCount {
		return ErrPermanentFailure
	}
	if rec.count >= p.cfg.FailureThreshold && time.Since(rec.timestamp) < p.cfg.CircuitBreakerTimeout {
		return ErrCircuitOpen
	}
	if rec.count >= p.cfg.FailureThreshold {
		// Timeout elapsed: clear and allow retry.
		delete(p.failures, key)
	}
	return nil
}

func (p *Pool) recordFailure(key string, err error) {
	p.failuresMu.Lock()
	defer p.failuresMu.Unlock()

	rec, ok := p.failures[key]
	if !ok {
		rec = &failedHostRecord{}
		p.failures[key] = rec
	}
	rec.count++
	rec.timestamp = time.Now()
	rec.err = truncateErr(err.Error(), 200)
	if isPermanentDNSFailure(err) {
		rec.permanent = true
	}
	slog.Warn("ssh connection failed", "host", key, "count", rec.count, "error", rec.err)
}

func (p *Pool) clearFailure(key string) {
	p.failuresMu.Lock()
	defer p.failuresMu.Unlock()
	delete(p.failures, key)
}

func isPermanentDNSFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such host") || strings.Contains(msg, "nxdomain")
}

func truncateErr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Close releases every pooled connection.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, e := range p.entries {
		if e.client != nil {
			_ = e.client.Close()
		}
		delete(p.entries, key)
	}
}
