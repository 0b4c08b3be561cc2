// Package netplan decides, for a given host, whether to connect directly or
// via a jump host, per spec §4.C.
package netplan

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Decision is the outcome of Plan.
type Decision struct {
	Mode    Mode
	Gateway string // only set when Mode == ModeJump
}

// Mode distinguishes a direct connection from one pivoted through a jump host.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModeJump   Mode = "jump"
)

// Route is a persisted CIDR-to-gateway mapping.
type Route struct {
	Network string // CIDR
	Gateway string // hostname
}

// RouteTable is the persistent set of routes consulted when a target isn't
// directly reachable. Longest-prefix match wins.
type RouteTable interface {
	Routes() []Route
}

// DialProbe checks TCP reachability; overridable in tests.
type DialProbe func(ctx context.Context, addr string, timeout time.Duration) bool

func defaultDialProbe(ctx context.Context, addr string, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Resolver resolves a hostname to an IP; overridable in tests.
type Resolver func(ctx context.Context, host string) (string, error)

func defaultResolver(ctx context.Context, host string) (string, error) {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("no addresses found for %s", host)
	}
	// Preference ordering is implementation-defined (spec §9 open question):
	// first address returned by the resolver wins, no Happy Eyeballs.
	return ips[0].IP.String(), nil
}

// Planner implements spec §4.C's three-step connectivity algorithm.
type Planner struct {
	routes RouteTable
	probe  DialProbe
	resolv Resolver
	// ProbeTimeout is the TCP :22 reachability deadline. Defaults to 2s.
	ProbeTimeout time.Duration
}

// NewPlanner creates a Planner consulting routes for jump-host fallback.
func NewPlanner(routes RouteTable) *Planner {
	return &Planner{
		routes:       routes,
		probe:        defaultDialProbe,
		resolv:       defaultResolver,
		ProbeTimeout: 2 * time.Second,
	}
}

// Plan decides direct-vs-jump for (hostname, ip). ip may be empty, in which
// case it is resolved only if the direct probe fails.
func (p *Planner) Plan(ctx context.Context, hostname, ip string) Decision {
	addr := net.JoinHostPort(hostname, "22")
	if p.probe(ctx, addr, p.ProbeTimeout) {
		return Decision{Mode: ModeDirect}
	}

	resolved := ip
	if resolved == "" {
		if r, err := p.resolv(ctx, hostname); err == nil {
			resolved = r
		}
	}

	if resolved != "" {
		if gw, ok := longestPrefixMatch(p.routes.Routes(), resolved); ok {
			return Decision{Mode: ModeJump, Gateway: gw}
		}
	}

	return Decision{Mode: ModeDirect}
}

// WithDialProbe returns p with its TCP reachability probe replaced. Intended
// for tests; production callers use NewPlanner's default.
func WithDialProbe(p *Planner, probe DialProbe) *Planner {
	p.probe = probe
	return p
}

// WithResolver returns p with its hostname resolver replaced. Test-only.
func WithResolver(p *Planner, resolver Resolver) *Planner {
	p.resolv = resolver
	return p
}

func longestPrefixMatch(routes []Route, ip string) (gateway string, matched bool) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", false
	}

	bestLen := -1
	for _, r := range routes {
		_, network, err := net.ParseCIDR(r.Network)
		if err != nil || !network.Contains(addr) {
			continue
		}
		ones, _ := network.Mask.Size()
		if ones > bestLen {
			bestLen = ones
			gateway = r.Gateway
			matched = true
		}
	}
	return gateway, matched
}
