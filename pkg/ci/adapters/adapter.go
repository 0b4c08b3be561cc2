// Package adapters implements the CI platform adapter base and concrete
// platform adapters (§4.L): a typed configuration, a table of
// interchangeable client strategies, and a cached "active" client chosen
// by walking the configured preference order.
package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/merlya/merlya-core/pkg/ci/clients"
	"github.com/merlya/merlya-core/pkg/ci/models"
)

// CIPlatformType is the closed set of platforms core knows the name of.
// Every adapter subclass must declare one.
type CIPlatformType string

const (
	PlatformTypeGitHub  CIPlatformType = "github"
	PlatformTypeGitLab  CIPlatformType = "gitlab"
	PlatformTypeJenkins CIPlatformType = "jenkins"
)

// ErrNoAvailableClient is returned when no configured client strategy
// reports itself available.
var ErrNoAvailableClient = fmt.Errorf("ci adapter: no available client strategy")

// Config is an adapter's typed configuration, seeded by the platform
// manager's detection pass (§4.M) or supplied directly by the caller.
type Config struct {
	Owner             string
	Repo              string
	ProjectPath       string // GitLab-style "group/project"
	APIBaseURL        string
	PreferredClients  []string // order to try, e.g. []string{"cli", "api", "mcp"}
}

// Base holds the shared state every concrete adapter embeds: config, the
// client-strategy table, and the cached active client.
type Base struct {
	PlatformType CIPlatformType
	Config       Config
	Strategies   map[string]clients.Client

	mu     sync.Mutex
	active clients.Client
}

// NewBase constructs an adapter base. platformType must be non-empty; the
// base constructor rejects instantiation otherwise (spec §4.L).
func NewBase(platformType CIPlatformType, cfg Config, strategies map[string]clients.Client) (*Base, error) {
	if platformType == "" {
		return nil, fmt.Errorf("ci adapter base: platformType must be declared by the concrete adapter")
	}
	return &Base{PlatformType: platformType, Config: cfg, Strategies: strategies}, nil
}

// GetActiveClient walks Config.PreferredClients in order and returns the
// first strategy whose IsAvailable reports true. The result is cached;
// if the cached client becomes unavailable on a later call, it is
// re-selected.
func (b *Base) GetActiveClient(ctx context.Context) (clients.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil && b.active.IsAvailable(ctx) {
		return b.active, nil
	}

	for _, name := range b.Config.PreferredClients {
		c, ok := b.Strategies[name]
		if !ok {
			continue
		}
		if c.IsAvailable(ctx) {
			b.active = c
			return c, nil
		}
	}
	return nil, ErrNoAvailableClient
}

// Operations is the canonical operation-name surface every CI adapter
// exposes, per spec §6's CLI template table.
const (
	OpListWorkflows = "list_workflows"
	OpListRuns      = "list_runs"
	OpGetRun        = "get_run"
	OpGetRunLogs    = "get_run_logs"
	OpTriggerRun    = "trigger_workflow"
	OpCancelRun     = "cancel_run"
	OpRetryRun      = "retry_run"
	OpListSecrets   = "list_secrets"
	OpAuthStatus    = "auth_status"
)

// Adapter is the operation surface every concrete CI platform adapter
// implements.
type Adapter interface {
	PlatformKind() CIPlatformType
	ListWorkflows(ctx context.Context) ([]models.Workflow, error)
	ListRuns(ctx context.Context, workflowID string, limit int) ([]models.Run, error)
	GetRun(ctx context.Context, runID string, includeJobs bool) (*models.Run, error)
	GetRunLogs(ctx context.Context, runID string, failedOnly bool) (string, error)
	GetRunLogsForJob(ctx context.Context, runID, jobName string, failedOnly bool) (string, error)
	TriggerWorkflow(ctx context.Context, workflowID string, ref string) error
	CancelRun(ctx context.Context, runID string) error
	RetryRun(ctx context.Context, runID string) error
	AnalyzeFailure(ctx context.Context, runID string) (*models.FailureAnalysis, error)
}
