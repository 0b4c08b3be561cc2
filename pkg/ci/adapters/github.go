package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/merlya/merlya-core/pkg/ci/clients"
	"github.com/merlya/merlya-core/pkg/ci/models"
)

// ErrorClassifier is the subset of pkg/ci/analysis.Classifier the GitHub
// adapter needs to turn extracted error lines into a FailureAnalysis.
// Declared here (not imported from analysis) to keep adapters the leaf
// package and avoid a cross-package construction dependency.
type ErrorClassifier interface {
	Classify(ctx context.Context, errorText string) (errType models.ErrorType, confidence float64, matchedPattern string, suggestions []string)
}

// errorMarkers are the line-prefix/substring markers the spec names for
// scanning raw CI logs into candidate error lines.
var errorMarkers = []string{
	"error:", "Error:", "ERROR:", "failed:", "Failed:", "FAILED:",
	"exception:", "Exception:", "fatal:", "Fatal:", "::error::", "❌", "✗",
}

// GitHub implements the full CI adapter operation set by routing to the
// CLI client (gh) and parsing its JSON or raw output.
type GitHub struct {
	*Base
	Classifier ErrorClassifier
}

// NewGitHub builds a GitHub adapter. cli is registered as the "cli" client
// strategy (the default preference when cfg names none); classifier turns
// extracted error lines into a FailureAnalysis.
func NewGitHub(cfg Config, cli clients.Client, classifier ErrorClassifier) (*GitHub, error) {
	base, err := NewBase(PlatformTypeGitHub, cfg, map[string]clients.Client{"cli": cli})
	if err != nil {
		return nil, err
	}
	if len(cfg.PreferredClients) == 0 {
		base.Config.PreferredClients = []string{"cli"}
	}
	return &GitHub{Base: base, Classifier: classifier}, nil
}

// PlatformKind reports this adapter's declared platform type.
func (g *GitHub) PlatformKind() CIPlatformType { return g.PlatformType }

func (g *GitHub) client(ctx context.Context) (clients.Client, error) {
	return g.GetActiveClient(ctx)
}

// ListWorkflows lists the repository's workflow definitions.
func (g *GitHub) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	c, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.Execute(ctx, OpListWorkflows, map[string]string{"owner": g.Config.Owner, "repo": g.Config.Repo})
	if err != nil {
		return nil, fmt.Errorf("github adapter: list workflows: %w", err)
	}
	items, _ := res.Data.([]any)
	out := make([]models.Workflow, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Workflow{
			ID:   asString(m["id"]),
			Name: asString(m["name"]),
			Path: asString(m["path"]),
		})
	}
	return out, nil
}

// ListRuns lists the most recent runs for workflowID (empty = all
// workflows), capped at limit.
func (g *GitHub) ListRuns(ctx context.Context, workflowID string, limit int) ([]models.Run, error) {
	c, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.Execute(ctx, OpListRuns, map[string]string{
		"owner": g.Config.Owner, "repo": g.Config.Repo,
		"workflow_id": workflowID, "limit": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("github adapter: list runs: %w", err)
	}
	items, _ := res.Data.([]any)
	out := make([]models.Run, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, runFromMap(m))
	}
	return out, nil
}

// GetRun fetches one run, optionally with its jobs populated.
func (g *GitHub) GetRun(ctx context.Context, runID string, includeJobs bool) (*models.Run, error) {
	c, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.Execute(ctx, OpGetRun, map[string]string{
		"owner": g.Config.Owner, "repo": g.Config.Repo,
		"run_id": runID, "include_jobs": strconv.FormatBool(includeJobs),
	})
	if err != nil {
		return nil, fmt.Errorf("github adapter: get run %s: %w", runID, err)
	}
	m, ok := res.Data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("github adapter: get run %s: unexpected response shape", runID)
	}
	run := runFromMap(m)
	if includeJobs {
		if jobsRaw, ok := m["jobs"].([]any); ok {
			for _, jr := range jobsRaw {
				if jm, ok := jr.(map[string]any); ok {
					run.Jobs = append(run.Jobs, jobFromMap(jm))
				}
			}
		}
	}
	return &run, nil
}

// logFlag picks the gh run view log flag for failedOnly, per spec §6's CI
// CLI template table: failed_only wires straight through to gh's own
// --log-failed flag rather than being filtered client-side.
func logFlag(failedOnly bool) string {
	if failedOnly {
		return "--log-failed"
	}
	return "--log"
}

// GetRunLogs fetches a run's raw logs, optionally restricted to failed
// jobs only.
func (g *GitHub) GetRunLogs(ctx context.Context, runID string, failedOnly bool) (string, error) {
	c, err := g.client(ctx)
	if err != nil {
		return "", err
	}
	res, err := c.Execute(ctx, OpGetRunLogs, map[string]string{
		"owner": g.Config.Owner, "repo": g.Config.Repo,
		"run_id": runID, "failed_only": strconv.FormatBool(failedOnly), "log_flag": logFlag(failedOnly),
	})
	if err != nil {
		return "", fmt.Errorf("github adapter: get run logs %s: %w", runID, err)
	}
	if s, ok := res.Data.(string); ok {
		return s, nil
	}
	return string(res.Raw), nil
}

// GetRunLogsForJob fetches a run's logs and scopes them to one job, per the
// original's get_run_logs(job_name=...) path (athena_ai/ci/adapters/github.py).
// gh's --log output prefixes each line "jobName<TAB>stepName<TAB>...";
// PartitionJobLogs segments on that prefix whenever it changes. Returns
// ("", nil) if jobName never appears in the logs.
func (g *GitHub) GetRunLogsForJob(ctx context.Context, runID, jobName string, failedOnly bool) (string, error) {
	raw, err := g.GetRunLogs(ctx, runID, failedOnly)
	if err != nil {
		return "", err
	}
	return PartitionJobLogs(raw)[jobName], nil
}

// PartitionJobLogs segments gh's tab-delimited run-log output into one log
// blob per job name: "jobName<TAB>stepName<TAB>log line". Lines before the
// first recognized job prefix accumulate under "default", matching the
// original's _parse_job_logs.
func PartitionJobLogs(raw string) map[string]string {
	jobLogs := make(map[string]string)
	currentJob := "default"
	var currentLines []string

	for _, line := range strings.Split(raw, "\n") {
		if strings.Contains(line, "\t") {
			parts := strings.SplitN(line, "\t", 3)
			jobName := strings.TrimSpace(parts[0])
			if jobName != "" && jobName != currentJob {
				if len(currentLines) > 0 {
					jobLogs[currentJob] = strings.Join(currentLines, "\n")
				}
				currentJob = jobName
				currentLines = nil
			}
		}
		currentLines = append(currentLines, line)
	}
	if len(currentLines) > 0 {
		jobLogs[currentJob] = strings.Join(currentLines, "\n")
	}
	return jobLogs
}

// TriggerWorkflow dispatches workflowID on ref.
func (g *GitHub) TriggerWorkflow(ctx context.Context, workflowID, ref string) error {
	c, err := g.client(ctx)
	if err != nil {
		return err
	}
	_, err = c.Execute(ctx, OpTriggerRun, map[string]string{
		"owner": g.Config.Owner, "repo": g.Config.Repo, "workflow_id": workflowID, "ref": ref,
	})
	if err != nil {
		return fmt.Errorf("github adapter: trigger workflow %s: %w", workflowID, err)
	}
	return nil
}

// CancelRun cancels an in-progress run.
func (g *GitHub) CancelRun(ctx context.Context, runID string) error {
	c, err := g.client(ctx)
	if err != nil {
		return err
	}
	_, err = c.Execute(ctx, OpCancelRun, map[string]string{"owner": g.Config.Owner, "repo": g.Config.Repo, "run_id": runID})
	if err != nil {
		return fmt.Errorf("github adapter: cancel run %s: %w", runID, err)
	}
	return nil
}

// RetryRun re-runs a completed run's failed jobs.
func (g *GitHub) RetryRun(ctx context.Context, runID string) error {
	c, err := g.client(ctx)
	if err != nil {
		return err
	}
	_, err = c.Execute(ctx, OpRetryRun, map[string]string{"owner": g.Config.Owner, "repo": g.Config.Repo, "run_id": runID})
	if err != nil {
		return fmt.Errorf("github adapter: retry run %s: %w", runID, err)
	}
	return nil
}

// AnalyzeFailure fetches a run and its logs, extracts candidate error
// lines, and classifies them into a FailureAnalysis, per spec §4.L.
func (g *GitHub) AnalyzeFailure(ctx context.Context, runID string) (*models.FailureAnalysis, error) {
	run, err := g.GetRun(ctx, runID, true)
	if err != nil {
		return nil, err
	}
	logs, err := g.GetRunLogs(ctx, runID, true)
	if err != nil {
		return nil, err
	}

	errorLines := ExtractErrorLines(logs)
	joined := strings.Join(errorLines, "\n")

	var errType models.ErrorType = models.ErrorTypeUnknown
	var confidence float64
	var matched string
	var suggestions []string
	if g.Classifier != nil {
		errType, confidence, matched, suggestions = g.Classifier.Classify(ctx, joined)
	}

	var failedJobs []string
	for _, j := range run.Jobs {
		if j.Conclusion == "failure" {
			failedJobs = append(failedJobs, j.Name)
		}
	}

	rawError := joined
	if len(rawError) > 5*1024 {
		rawError = rawError[:5*1024]
	}

	return &models.FailureAnalysis{
		RunID:          runID,
		ErrorType:      errType,
		Summary:        summarize(errorLines),
		RawError:       rawError,
		Confidence:     confidence,
		FailedJobs:     failedJobs,
		Suggestions:    suggestions,
		MatchedPattern: matched,
	}, nil
}

// ExtractErrorLines line-scans raw CI log text for the spec's error
// markers, keeps lines longer than 10 characters, truncates each to 500
// characters, and caps the result at 10 lines.
func ExtractErrorLines(logs string) []string {
	var out []string
	for _, line := range strings.Split(logs, "\n") {
		if len(out) >= 10 {
			break
		}
		if len(line) <= 10 {
			continue
		}
		matched := false
		for _, marker := range errorMarkers {
			if strings.Contains(line, marker) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if len(line) > 500 {
			line = line[:500]
		}
		out = append(out, line)
	}
	return out
}

func summarize(lines []string) string {
	if len(lines) == 0 {
		return "no error lines extracted"
	}
	return lines[0]
}

func runFromMap(m map[string]any) models.Run {
	status := asString(m["status"])
	conclusion := asString(m["conclusion"])
	return models.Run{
		ID:         asString(m["id"]),
		Name:       asString(m["name"]),
		Status:     models.FromGitHub(status, conclusion),
		Conclusion: conclusion,
		WorkflowID: asString(m["workflow_id"]),
		Branch:     asString(m["head_branch"]),
		CommitSHA:  asString(m["head_sha"]),
		Platform:   models.PlatformGitHub,
	}
}

func jobFromMap(m map[string]any) models.Job {
	status := asString(m["status"])
	conclusion := asString(m["conclusion"])
	return models.Job{
		ID:         asString(m["id"]),
		Name:       asString(m["name"]),
		Status:     models.FromGitHub(status, conclusion),
		Conclusion: conclusion,
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
