package sentinel

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const maxResultHistory = 100

// Sentinel is a background scheduler that runs HealthChecks on their own
// interval and routes results into an AlertManager.
type Sentinel struct {
	checker Checker
	alerts  *AlertManager

	mu      sync.Mutex
	status  Status
	checks  map[string]HealthCheck
	results map[string][]CheckResult
	lastRun map[string]time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Sentinel. checker runs each check's actual probe.
func New(checker Checker, alerts *AlertManager) *Sentinel {
	return &Sentinel{
		checker: checker,
		alerts:  alerts,
		status:  StatusStopped,
		checks:  make(map[string]HealthCheck),
		results: make(map[string][]CheckResult),
		lastRun: make(map[string]time.Time),
	}
}

// AddCheck registers or replaces a HealthCheck.
func (s *Sentinel) AddCheck(check HealthCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.checks[check.Name]; exists {
		slog.Warn("check already exists, replacing", "check", check.Name)
	}
	s.checks[check.Name] = check
	s.results[check.Name] = nil
}

// RemoveCheck removes a HealthCheck, reporting whether it existed.
func (s *Sentinel) RemoveCheck(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checks[name]; !ok {
		return false
	}
	delete(s.checks, name)
	delete(s.results, name)
	delete(s.lastRun, name)
	return true
}

// SetEnabled toggles a HealthCheck's enabled flag.
func (s *Sentinel) SetEnabled(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	check, ok := s.checks[name]
	if !ok {
		return false
	}
	check.Enabled = enabled
	s.checks[name] = check
	return true
}

// Checks returns every registered HealthCheck.
func (s *Sentinel) Checks() []HealthCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HealthCheck, 0, len(s.checks))
	for _, c := range s.checks {
		out = append(out, c)
	}
	return out
}

// Status returns the scheduler's current lifecycle state.
func (s *Sentinel) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start launches the scheduling loop. Refuses to start with zero checks or
// while already running.
func (s *Sentinel) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		slog.Warn("sentinel already running")
		return false
	}
	if len(s.checks) == 0 {
		s.mu.Unlock()
		slog.Warn("no health checks configured")
		return false
	}
	s.status = StatusRunning
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
	slog.Info("sentinel started", "checks", len(s.checks))
	return true
}

// Stop signals the scheduling loop to exit and waits (bounded) for it.
func (s *Sentinel) Stop() bool {
	s.mu.Lock()
	if s.status == StatusStopped {
		s.mu.Unlock()
		return false
	}
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("sentinel stop timed out waiting for loop exit")
	}

	s.mu.Lock()
	s.status = StatusStopped
	s.mu.Unlock()
	slog.Info("sentinel stopped")
	return true
}

// Pause flips RUNNING to PAUSED; a no-op otherwise.
func (s *Sentinel) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return false
	}
	s.status = StatusPaused
	return true
}

// Resume flips PAUSED back to RUNNING; a no-op otherwise.
func (s *Sentinel) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPaused {
		return false
	}
	s.status = StatusRunning
	return true
}

func (s *Sentinel) loop(ctx context.Context) {
	defer close(s.doneCh)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sentinel) tick(ctx context.Context) {
	s.mu.Lock()
	if s.status == StatusPaused {
		s.mu.Unlock()
		return
	}

	now := time.Now()
	var due []HealthCheck
	for name, check := range s.checks {
		if !check.Enabled {
			continue
		}
		interval := time.Duration(check.IntervalSeconds) * time.Second
		if now.Sub(s.lastRun[name]) >= interval {
			due = append(due, check)
			s.lastRun[name] = now
		}
	}
	s.mu.Unlock()

	for _, check := range due {
		result := s.runCheck(ctx, check)
		s.recordResult(result)
		s.alerts.ProcessResult(ctx, result)
	}
}

func (s *Sentinel) runCheck(ctx context.Context, check HealthCheck) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.status = StatusError
			s.mu.Unlock()
			slog.Error("check panicked", "check", check.Name, "panic", r)
			result = CheckResult{Check: check, Success: false, Timestamp: time.Now(), Error: "panic during check execution"}
		}
	}()

	timeout := time.Duration(check.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.checker.Run(checkCtx, check)
}

func (s *Sentinel) recordResult(result CheckResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.results[result.Check.Name], result)
	if len(history) > maxResultHistory {
		history = history[len(history)-maxResultHistory:]
	}
	s.results[result.Check.Name] = history
}

// History returns the bounded result history for a check.
func (s *Sentinel) History(checkName string) []CheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CheckResult, len(s.results[checkName]))
	copy(out, s.results[checkName])
	return out
}
