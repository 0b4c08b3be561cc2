// Package sentinel runs a background scheduler that executes configurable
// health checks and raises alerts/incidents on sustained failure.
package sentinel

import (
	"context"
	"time"
)

// CheckType identifies how a HealthCheck's target is probed.
type CheckType string

const (
	CheckPing   CheckType = "ping"
	CheckPort   CheckType = "port"
	CheckHTTP   CheckType = "http"
	CheckCustom CheckType = "custom"
)

// HealthCheck is a named, scheduled probe against a target.
type HealthCheck struct {
	Name              string
	Target            string
	CheckType         CheckType
	Parameters        map[string]any
	IntervalSeconds   int
	TimeoutSeconds    int
	ThresholdFailures int
	Enabled           bool
}

// CheckResult is the outcome of one HealthCheck execution.
type CheckResult struct {
	Check          HealthCheck
	Success        bool
	ResponseTimeMS int64
	Timestamp      time.Time
	Error          string
	Details        map[string]any
}

// Severity classifies an Alert's urgency.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is raised when a check's consecutive-failure count crosses its
// threshold. At most one Alert is active per check at a time.
type Alert struct {
	ID                  string
	CheckName           string
	Target              string
	Severity            Severity
	Message             string
	Timestamp           time.Time
	ConsecutiveFailures int
	Acknowledged        bool
	IncidentID          string
}

// Status is the scheduler's lifecycle state.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusError   Status = "error"
)

// Checker executes a single HealthCheck and reports the outcome.
type Checker interface {
	Run(ctx context.Context, check HealthCheck) CheckResult
}
