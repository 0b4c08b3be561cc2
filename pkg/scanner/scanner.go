// Package scanner performs on-demand host scans: connectivity, DNS, and
// (for deeper scan kinds) SSH-gathered system facts, with a shared rate
// limiter, retry with backoff, and a TTL result cache.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ScanKind selects how deep a scan goes.
type ScanKind string

const (
	KindBasic     ScanKind = "basic"
	KindSystem    ScanKind = "system"
	KindServices  ScanKind = "services"
	KindPackages  ScanKind = "packages"
	KindProcesses ScanKind = "processes"
	KindFull      ScanKind = "full"
)

// sshScanKinds is the set of kinds that require an SSH connection.
var sshScanKinds = map[ScanKind]bool{
	KindSystem:    true,
	KindServices:  true,
	KindPackages:  true,
	KindProcesses: true,
	KindFull:      true,
}

// Config tunes parallelism, rate limiting, retry, and per-kind cache TTLs.
type Config struct {
	MaxWorkers int
	BatchSize  int

	RequestsPerSecond float64
	BurstSize         int

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	ConnectTimeout time.Duration
	CommandTimeout time.Duration

	CacheTTL map[ScanKind]time.Duration
}

// DefaultConfig matches the defaults of the reference scanner this package
// is modeled on.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:        10,
		BatchSize:         5,
		RequestsPerSecond: 5.0,
		BurstSize:         10,
		MaxRetries:        3,
		RetryBaseDelay:    time.Second,
		RetryMaxDelay:     30 * time.Second,
		ConnectTimeout:    10 * time.Second,
		CommandTimeout:    60 * time.Second,
		CacheTTL: map[ScanKind]time.Duration{
			KindBasic:     5 * time.Minute,
			KindSystem:    30 * time.Minute,
			KindServices:  15 * time.Minute,
			KindPackages:  time.Hour,
			KindProcesses: time.Minute,
			KindFull:      10 * time.Minute,
		},
	}
}

func (c Config) ttlFor(kind ScanKind) time.Duration {
	if ttl, ok := c.CacheTTL[kind]; ok {
		return ttl
	}
	return 5 * time.Minute
}

// Result is the outcome of scanning one host.
type Result struct {
	Hostname  string
	Success   bool
	Data      map[string]any
	Error     string
	Duration  time.Duration
	Retries   int
	ScannedAt time.Time
}

// ProgressFunc reports scan progress: (completed, total, hostname).
type ProgressFunc func(completed, total int, hostname string)

// CommandRunner executes a command on a host over SSH and returns trimmed
// stdout. Implementations live in pkg/sshpool; tests substitute fakes.
type CommandRunner interface {
	Run(ctx context.Context, hostname, command string, timeout time.Duration) (string, error)
}

// Prober checks DNS resolution and TCP reachability. Overridable in tests.
type Prober interface {
	Resolve(ctx context.Context, hostname string) (ip string, allIPs []string, err error)
	Reachable(ctx context.Context, hostname string, port int, timeout time.Duration) bool
}

type netProber struct{}

func (netProber) Resolve(ctx context.Context, hostname string) (string, []string, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return "", nil, err
	}
	if len(addrs) == 0 {
		return "", nil, fmt.Errorf("no addresses for %s", hostname)
	}
	all := make([]string, 0, len(addrs))
	seen := make(map[string]bool)
	for _, a := range addrs {
		ip := a.IP.String()
		if !seen[ip] {
			seen[ip] = true
			all = append(all, ip)
		}
	}
	return addrs[0].IP.String(), all, nil
}

func (netProber) Reachable(ctx context.Context, hostname string, port int, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(hostname, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Scanner performs on-demand host scans.
type Scanner struct {
	cfg     Config
	limiter *RateLimiter
	cache   ResultCache
	prober  Prober
	runner  CommandRunner // nil disables SSH-based scan kinds
}

// New creates a Scanner backed by the shared process-wide rate limiter.
func New(cfg Config, cache ResultCache, runner CommandRunner) *Scanner {
	return &Scanner{
		cfg:     cfg,
		limiter: SharedRateLimiter(cfg.RequestsPerSecond, cfg.BurstSize),
		cache:   cache,
		prober:  netProber{},
		runner:  runner,
	}
}

// WithProber overrides the connectivity/DNS prober. Test-only.
func WithProber(s *Scanner, p Prober) *Scanner {
	s.prober = p
	return s
}

// ScanHost scans a single host; a convenience wrapper over ScanHosts.
func (s *Scanner) ScanHost(ctx context.Context, hostname string, kind ScanKind, force bool) Result {
	results := s.ScanHosts(ctx, []string{hostname}, kind, force, nil)
	if len(results) == 0 {
		return Result{Hostname: hostname, Success: false, Error: "no result returned"}
	}
	return results[0]
}

// ScanHosts scans hostnames in batches of cfg.BatchSize, consulting the
// cache first unless force is set, and reports progress as each result
// lands (cached results are reported first as one batch).
func (s *Scanner) ScanHosts(ctx context.Context, hostnames []string, kind ScanKind, force bool, progress ProgressFunc) []Result {
	total := len(hostnames)
	results := make([]Result, 0, total)
	var toScan []string

	if !force {
		for _, h := range hostnames {
			if cached, ok := s.cache.Get(ctx, h, string(kind)); ok {
				results = append(results, Result{Hostname: h, Success: true, Data: cached, ScannedAt: time.Now()})
			} else {
				toScan = append(toScan, h)
			}
		}
	} else {
		toScan = hostnames
	}

	if progress != nil {
		progress(len(results), total, "using cache")
	}
	if len(toScan) == 0 {
		return results
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for i := 0; i < len(toScan); i += batchSize {
		end := i + batchSize
		if end > len(toScan) {
			end = len(toScan)
		}
		batchResults := s.scanBatch(ctx, toScan[i:end], kind)
		for _, r := range batchResults {
			results = append(results, r)
			if r.Success {
				s.cache.Set(ctx, r.Hostname, string(kind), r.Data, s.cfg.ttlFor(kind))
			}
			if progress != nil {
				progress(len(results), total, r.Hostname)
			}
		}
	}

	return results
}

// scanBatch scans a batch concurrently, bounded by cfg.MaxWorkers, and
// preserves per-host failures instead of aborting the batch.
func (s *Scanner) scanBatch(ctx context.Context, hostnames []string, kind ScanKind) []Result {
	results := make([]Result, len(hostnames))
	sem := make(chan struct{}, max(1, s.cfg.MaxWorkers))
	var wg sync.WaitGroup

	for i, h := range hostnames {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, hostname string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = s.scanWithRetry(ctx, hostname, kind)
		}(i, h)
	}
	wg.Wait()
	return results
}

// scanWithRetry scans one host, retrying with exponential backoff on error.
func (s *Scanner) scanWithRetry(ctx context.Context, hostname string, kind ScanKind) Result {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := s.limiter.Acquire(ctx); err != nil {
			return Result{Hostname: hostname, Success: false, Error: err.Error(), Retries: attempt, ScannedAt: time.Now()}
		}

		start := time.Now()
		data, err := s.performScan(ctx, hostname, kind)
		if err == nil {
			return Result{
				Hostname:  hostname,
				Success:   true,
				Data:      data,
				Duration:  time.Since(start),
				Retries:   attempt,
				ScannedAt: time.Now(),
			}
		}

		lastErr = err
		if attempt < s.cfg.MaxRetries {
			delay := s.cfg.RetryBaseDelay * time.Duration(1<<attempt)
			if delay > s.cfg.RetryMaxDelay {
				delay = s.cfg.RetryMaxDelay
			}
			slog.Debug("scan retry", "hostname", hostname, "attempt", attempt+1, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return Result{Hostname: hostname, Success: false, Error: ctx.Err().Error(), Retries: attempt, ScannedAt: time.Now()}
			case <-time.After(delay):
			}
		}
	}

	return Result{Hostname: hostname, Success: false, Error: lastErr.Error(), Retries: s.cfg.MaxRetries, ScannedAt: time.Now()}
}

// performScan runs the actual scan: DNS, connectivity, then (for deeper
// kinds) SSH-gathered facts.
func (s *Scanner) performScan(ctx context.Context, hostname string, kind ScanKind) (map[string]any, error) {
	data := map[string]any{
		"hostname":   hostname,
		"scan_type":  string(kind),
		"scanned_at": time.Now().UTC().Format(time.RFC3339),
	}

	if ip, all, err := s.prober.Resolve(ctx, hostname); err == nil {
		data["ip"] = ip
		data["dns_resolved"] = true
		if len(all) > 1 {
			data["all_ips"] = all
		}
	} else {
		data["dns_resolved"] = false
	}

	reachable := s.prober.Reachable(ctx, hostname, 22, s.cfg.ConnectTimeout)
	data["reachable"] = reachable
	if !reachable {
		return data, nil
	}

	if sshScanKinds[kind] {
		if s.runner == nil {
			data["ssh_connected"] = false
			data["error"] = "no command runner configured"
			return data, nil
		}
		sshData, err := s.sshScan(ctx, hostname, kind)
		if err != nil {
			return nil, err
		}
		for k, v := range sshData {
			data[k] = v
		}
	}

	return data, nil
}

func (s *Scanner) sshScan(ctx context.Context, hostname string, kind ScanKind) (map[string]any, error) {
	data := map[string]any{"ssh_connected": true}

	if kind == KindSystem || kind == KindFull {
		for k, v := range s.systemInfo(ctx, hostname) {
			data[k] = v
		}
	}
	if kind == KindServices || kind == KindFull {
		for k, v := range s.servicesInfo(ctx, hostname) {
			data[k] = v
		}
	}
	if kind == KindPackages || kind == KindFull {
		if out, err := s.run(ctx, hostname, packageListCommand); err == nil && out != "" {
			data["packages"] = strings.Split(out, "\n")
		}
	}
	if kind == KindProcesses || kind == KindFull {
		if out, err := s.run(ctx, hostname, "ps aux 2>/dev/null | wc -l"); err == nil {
			if n, convErr := strconv.Atoi(strings.TrimSpace(out)); convErr == nil {
				data["process_count"] = n
			}
		}
	}
	if kind == KindFull {
		if out, err := s.run(ctx, hostname, "df -h / 2>/dev/null | tail -1 | awk '{print $5}'"); err == nil && out != "" {
			data["disk_usage_root"] = out
		}
		if out, err := s.run(ctx, hostname, "cat /proc/loadavg 2>/dev/null | cut -d' ' -f1-3"); err == nil && out != "" {
			data["load_avg"] = out
		}
	}

	return data, nil
}

const packageListCommand = "dpkg -l 2>/dev/null | awk '/^ii/{print $2}' || rpm -qa 2>/dev/null"

var systemCommands = map[string]string{
	"os":            `cat /etc/os-release 2>/dev/null | grep PRETTY_NAME | cut -d= -f2 | tr -d '"'`,
	"kernel":        "uname -r",
	"uptime":        "uptime -p 2>/dev/null || uptime",
	"cpu_count":     "nproc 2>/dev/null || sysctl -n hw.ncpu 2>/dev/null",
	"memory_mb":     "free -m 2>/dev/null | awk '/^Mem:/{print $2}'",
	"hostname_full": "hostname -f 2>/dev/null || hostname",
}

func (s *Scanner) systemInfo(ctx context.Context, hostname string) map[string]any {
	data := make(map[string]any)
	for key, cmd := range systemCommands {
		out, err := s.run(ctx, hostname, cmd)
		if err != nil {
			slog.Debug("system info command failed", "hostname", hostname, "key", key, "error", err)
			continue
		}
		if out != "" {
			data[key] = out
		}
	}
	return data
}

func (s *Scanner) servicesInfo(ctx context.Context, hostname string) map[string]any {
	data := make(map[string]any)

	out, err := s.run(ctx, hostname, "systemctl list-units --type=service --state=running --no-pager --no-legend 2>/dev/null | head -20")
	if err == nil && out != "" {
		var services []string
		for _, line := range strings.Split(out, "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			services = append(services, strings.TrimSuffix(fields[0], ".service"))
		}
		data["services"] = services
	}

	data["open_ports"] = s.openPorts(ctx, hostname)
	return data
}

var commonPorts = []int{22, 80, 443, 3306, 5432, 6379, 27017, 8080, 9000}

func (s *Scanner) openPorts(ctx context.Context, hostname string) []int {
	var ports []string
	for _, p := range commonPorts {
		ports = append(ports, strconv.Itoa(p))
	}
	cmd := fmt.Sprintf(`bash -c 'for p in %s; do (echo >/dev/tcp/127.0.0.1/$p) 2>/dev/null && echo $p; done'`, strings.Join(ports, " "))

	out, err := s.run(ctx, hostname, cmd)
	if err != nil || out == "" {
		return nil
	}

	var open []int
	for _, line := range strings.Split(out, "\n") {
		if n, convErr := strconv.Atoi(strings.TrimSpace(line)); convErr == nil {
			open = append(open, n)
		}
	}
	return open
}

func (s *Scanner) run(ctx context.Context, hostname, cmd string) (string, error) {
	if s.runner == nil {
		return "", errors.New("no command runner configured")
	}
	out, err := s.runner.Run(ctx, hostname, cmd, s.cfg.CommandTimeout)
	return strings.TrimSpace(out), err
}
