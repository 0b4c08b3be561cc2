// Package models defines the unified Run/Job/Workflow/Status schema that
// every CI platform adapter translates its vendor-specific notion of a
// build into, per spec §4.J.
package models

import "time"

// Status is the canonical run/job lifecycle state, independent of any one
// CI platform's vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusCancelled Status = "cancelled"
	StatusSkipped   Status = "skipped"
	StatusTimedOut  Status = "timed_out"
	StatusUnknown   Status = "unknown"
)

// Platform identifies which CI system produced a Run.
type Platform string

const (
	PlatformGitHub    Platform = "github"
	PlatformGitLab    Platform = "gitlab"
	PlatformJenkins   Platform = "jenkins"
	PlatformCircleCI  Platform = "circleci"
	PlatformUnknown   Platform = "unknown"
)

// Step is one unit of work within a Job.
type Step struct {
	Name        string
	Status      Status
	Conclusion  string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Job belongs to exactly one Run.
type Job struct {
	ID          string
	Name        string
	Status      Status
	Conclusion  string
	StartedAt   time.Time
	CompletedAt time.Time
	Steps       []Step
}

// Run is a single CI execution. Immutable once reported by the platform;
// adapters re-fetch it to observe progression rather than mutating it.
type Run struct {
	ID         string
	Name       string
	Status     Status
	Conclusion string
	WorkflowID string
	Branch     string
	CommitSHA  string
	CreatedAt  time.Time
	Jobs       []Job
	Platform   Platform
}

// Workflow is the reusable pipeline definition a Run is an instance of.
type Workflow struct {
	ID   string
	Name string
	Path string
}

// ErrorType is one of the 14 canonical failure categories the error
// classifier (§4.N) assigns to a run's extracted error text.
type ErrorType string

const (
	ErrorTypeTestFailure       ErrorType = "TEST_FAILURE"
	ErrorTypeBuildFailure      ErrorType = "BUILD_FAILURE"
	ErrorTypeCompileError      ErrorType = "COMPILE_ERROR"
	ErrorTypeDependencyError   ErrorType = "DEPENDENCY_ERROR"
	ErrorTypeLintError         ErrorType = "LINT_ERROR"
	ErrorTypeTimeout           ErrorType = "TIMEOUT"
	ErrorTypePermissionDenied  ErrorType = "PERMISSION_DENIED"
	ErrorTypeResourceExhausted ErrorType = "RESOURCE_EXHAUSTED"
	ErrorTypeNetworkError      ErrorType = "NETWORK_ERROR"
	ErrorTypeConfigError       ErrorType = "CONFIG_ERROR"
	ErrorTypeFlaky             ErrorType = "FLAKY"
	ErrorTypeInfraError        ErrorType = "INFRA_ERROR"
	ErrorTypeSecurityScanFail  ErrorType = "SECURITY_SCAN_FAILURE"
	ErrorTypeUnknown           ErrorType = "UNKNOWN"
)

// FailureAnalysis is the derived, never-mutated result of classifying a
// failed Run's extracted error text.
type FailureAnalysis struct {
	RunID          string
	ErrorType      ErrorType
	Summary        string
	RawError       string // capped at 5 KB by the producer
	Confidence     float64
	FailedJobs     []string
	Suggestions    []string
	MatchedPattern string
}

// FromGitHub translates a GitHub Actions (status, conclusion) pair into the
// canonical Status. Unknown inputs return StatusUnknown.
func FromGitHub(status, conclusion string) Status {
	switch status {
	case "queued":
		return StatusQueued
	case "in_progress":
		return StatusRunning
	case "completed":
		switch conclusion {
		case "success":
			return StatusSuccess
		case "failure":
			return StatusFailure
		case "cancelled":
			return StatusCancelled
		case "skipped", "neutral":
			return StatusSkipped
		case "timed_out":
			return StatusTimedOut
		default:
			return StatusUnknown
		}
	case "pending", "waiting", "requested":
		return StatusPending
	default:
		return StatusUnknown
	}
}

// FromGitLab translates a GitLab pipeline/job status string into the
// canonical Status. Unknown inputs return StatusUnknown.
func FromGitLab(status string) Status {
	switch status {
	case "created", "waiting_for_resource", "preparing":
		return StatusPending
	case "pending":
		return StatusQueued
	case "running":
		return StatusRunning
	case "success":
		return StatusSuccess
	case "failed":
		return StatusFailure
	case "canceled", "cancelled":
		return StatusCancelled
	case "skipped", "manual":
		return StatusSkipped
	default:
		return StatusUnknown
	}
}

// FromJenkins translates a Jenkins build result string into the canonical
// Status. Unknown inputs return StatusUnknown.
func FromJenkins(result string) Status {
	switch result {
	case "", "null":
		return StatusRunning
	case "SUCCESS":
		return StatusSuccess
	case "FAILURE":
		return StatusFailure
	case "ABORTED":
		return StatusCancelled
	case "NOT_BUILT":
		return StatusSkipped
	case "UNSTABLE":
		return StatusFailure
	default:
		return StatusUnknown
	}
}
