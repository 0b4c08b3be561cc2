package adapters

import (
	"context"
	"errors"

	"github.com/merlya/merlya-core/pkg/ci/models"
)

// ErrPlatformUnavailable is returned by every operation on a registration
// stub adapter, per spec §9 OQ1: only GitHub ships a full implementation,
// GitLab and Jenkins are declared so the registry has somewhere to route
// detection results, but they are not functional.
var ErrPlatformUnavailable = errors.New("ci adapter: platform registered but not implemented in this core")

// GitLab is a registration stub satisfying the Adapter interface.
type GitLab struct{ *Base }

// NewGitLab constructs a stub GitLab adapter.
func NewGitLab(cfg Config) (*GitLab, error) {
	base, err := NewBase(PlatformTypeGitLab, cfg, nil)
	if err != nil {
		return nil, err
	}
	return &GitLab{Base: base}, nil
}

func (g *GitLab) PlatformKind() CIPlatformType { return g.PlatformType }
func (g *GitLab) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	return nil, ErrPlatformUnavailable
}
func (g *GitLab) ListRuns(ctx context.Context, workflowID string, limit int) ([]models.Run, error) {
	return nil, ErrPlatformUnavailable
}
func (g *GitLab) GetRun(ctx context.Context, runID string, includeJobs bool) (*models.Run, error) {
	return nil, ErrPlatformUnavailable
}
func (g *GitLab) GetRunLogs(ctx context.Context, runID string, failedOnly bool) (string, error) {
	return "", ErrPlatformUnavailable
}
func (g *GitLab) GetRunLogsForJob(ctx context.Context, runID, jobName string, failedOnly bool) (string, error) {
	return "", ErrPlatformUnavailable
}
func (g *GitLab) TriggerWorkflow(ctx context.Context, workflowID, ref string) error {
	return ErrPlatformUnavailable
}
func (g *GitLab) CancelRun(ctx context.Context, runID string) error { return ErrPlatformUnavailable }
func (g *GitLab) RetryRun(ctx context.Context, runID string) error  { return ErrPlatformUnavailable }
func (g *GitLab) AnalyzeFailure(ctx context.Context, runID string) (*models.FailureAnalysis, error) {
	return nil, ErrPlatformUnavailable
}

// Jenkins is a registration stub satisfying the Adapter interface.
type Jenkins struct{ *Base }

// NewJenkins constructs a stub Jenkins adapter.
func NewJenkins(cfg Config) (*Jenkins, error) {
	base, err := NewBase(PlatformTypeJenkins, cfg, nil)
	if err != nil {
		return nil, err
	}
	return &Jenkins{Base: base}, nil
}

func (j *Jenkins) PlatformKind() CIPlatformType { return j.PlatformType }
func (j *Jenkins) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	return nil, ErrPlatformUnavailable
}
func (j *Jenkins) ListRuns(ctx context.Context, workflowID string, limit int) ([]models.Run, error) {
	return nil, ErrPlatformUnavailable
}
func (j *Jenkins) GetRun(ctx context.Context, runID string, includeJobs bool) (*models.Run, error) {
	return nil, ErrPlatformUnavailable
}
func (j *Jenkins) GetRunLogs(ctx context.Context, runID string, failedOnly bool) (string, error) {
	return "", ErrPlatformUnavailable
}
func (j *Jenkins) GetRunLogsForJob(ctx context.Context, runID, jobName string, failedOnly bool) (string, error) {
	return "", ErrPlatformUnavailable
}
func (j *Jenkins) TriggerWorkflow(ctx context.Context, workflowID, ref string) error {
	return ErrPlatformUnavailable
}
func (j *Jenkins) CancelRun(ctx context.Context, runID string) error { return ErrPlatformUnavailable }
func (j *Jenkins) RetryRun(ctx context.Context, runID string) error  { return ErrPlatformUnavailable }
func (j *Jenkins) AnalyzeFailure(ctx context.Context, runID string) (*models.FailureAnalysis, error) {
	return nil, ErrPlatformUnavailable
}
