package main

import (
	"strings"

	"github.com/merlya/merlya-core/pkg/ci/adapters"
	"github.com/merlya/merlya-core/pkg/ci/analysis"
	"github.com/merlya/merlya-core/pkg/ci/clients"
	ciregistry "github.com/merlya/merlya-core/pkg/ci/registry"
)

// ghCommandTemplates maps the adapter operation surface onto gh CLI argv,
// per the subprocess-exec contract pkg/ci/clients.CLIClient enforces.
var ghCommandTemplates = map[string]clients.CommandTemplate{
	adapters.OpListWorkflows: {Binary: "gh", Args: []string{"workflow", "list", "--json", "id,name,state,path"}},
	adapters.OpListRuns:      {Binary: "gh", Args: []string{"run", "list", "--json", "databaseId,name,status,conclusion,headBranch,event,createdAt,updatedAt,url"}},
	adapters.OpGetRun:        {Binary: "gh", Args: []string{"run", "view", "{run_id}", "--json", "databaseId,name,status,conclusion,headBranch,event,createdAt,updatedAt,url,jobs"}},
	adapters.OpGetRunLogs:    {Binary: "gh", Args: []string{"run", "view", "{run_id}", "{log_flag}"}},
	adapters.OpTriggerRun:    {Binary: "gh", Args: []string{"workflow", "run", "{workflow_id}"}},
	adapters.OpCancelRun:     {Binary: "gh", Args: []string{"run", "cancel", "{run_id}"}},
	adapters.OpRetryRun:      {Binary: "gh", Args: []string{"run", "rerun", "{run_id}"}},
	adapters.OpListSecrets:   {Binary: "gh", Args: []string{"secret", "list", "--json", "name,updatedAt"}},
}

var ghAuthCommand = clients.CommandTemplate{Binary: "gh", Args: []string{"auth", "status"}}

func parseGHAuthStatus(exitCode int, stdout, stderr string) clients.AuthStatus {
	if exitCode != 0 {
		return clients.AuthStatus{Authenticated: false}
	}
	combined := stdout + stderr
	authenticated := strings.Contains(combined, "Logged in to")
	username := ""
	if idx := strings.Index(combined, "account "); idx != -1 {
		rest := combined[idx+len("account "):]
		if end := strings.IndexAny(rest, " \n"); end != -1 {
			username = rest[:end]
		}
	}
	return clients.AuthStatus{Authenticated: authenticated, Username: username}
}

// registerCIPlatforms wires a factory into reg for each platform name in
// platforms that this module has a concrete adapter for. Platforms
// without a wired client strategy (gitlab, jenkins: no CLI/MCP credential
// plumbing configured yet) register the documented stub adapter instead,
// matching adapters.GitLab/adapters.Jenkins's ErrPlatformUnavailable
// contract.
func registerCIPlatforms(reg *ciregistry.Registry, platforms []string) {
	embedder := analysis.NewHeuristicEmbedder(64)
	classifier := analysis.NewClassifier(embedder)

	for _, name := range platforms {
		switch name {
		case "github":
			reg.Register("github", func(cfg adapters.Config) (adapters.Adapter, error) {
				cli := clients.NewCLIClient("github", ghCommandTemplates, ghAuthCommand, parseGHAuthStatus)
				return adapters.NewGitHub(cfg, cli, classifier)
			})
		case "gitlab":
			reg.Register("gitlab", func(cfg adapters.Config) (adapters.Adapter, error) {
				return adapters.NewGitLab(cfg)
			})
		case "jenkins":
			reg.Register("jenkins", func(cfg adapters.Config) (adapters.Adapter, error) {
				return adapters.NewJenkins(cfg)
			})
		}
	}
}
