package sshpool

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// HostResolver maps a hostname to the (user, ConnectOptions) needed to
// reach it, including jump-host routing decided by pkg/netplan.
type HostResolver interface {
	Resolve(hostname string) (ConnectOptions, *ssh.ClientConfig, error)
}

// Runner adapts a Pool into a scanner.CommandRunner, executing commands over
// short-lived SSH sessions on pooled connections.
type Runner struct {
	pool     *Pool
	jump     *Pool
	resolver HostResolver
}

// NewRunner creates a CommandRunner backed by pool, using resolver to look
// up per-host connection parameters and jump to pivot through a bastion.
func NewRunner(pool *Pool, jump *Pool, resolver HostResolver) *Runner {
	return &Runner{pool: pool, jump: jump, resolver: resolver}
}

// Run executes command on hostname over a pooled SSH connection and returns
// trimmed combined stdout.
func (r *Runner) Run(ctx context.Context, hostname, command string, timeout time.Duration) (string, error) {
	opts, config, err := r.resolver.Resolve(hostname)
	if err != nil {
		return "", fmt.Errorf("resolving connection for %s: %w", hostname, err)
	}

	client, err := r.pool.GetConnection(ctx, opts, config, r.jump)
	if err != nil {
		return "", err
	}

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening ssh session to %s: %w", hostname, err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case <-time.After(timeout):
		_ = session.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("command timed out after %s on %s", timeout, hostname)
	case err := <-done:
		if err != nil {
			return strings.TrimSpace(out.String()), fmt.Errorf("command failed on %s: %w", hostname, err)
		}
		return strings.TrimSpace(out.String()), nil
	}
}
