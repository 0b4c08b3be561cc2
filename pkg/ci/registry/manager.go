package registry

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/merlya/merlya-core/pkg/ci/adapters"
	"github.com/merlya/merlya-core/pkg/ci/clients"
)

// Detection is one signal the platform manager found for a platform, with
// its confidence and any repo details it could extract.
type Detection struct {
	Platform   string
	Confidence float64
	Source     string // "config_file" | "git_remote" | "env" | "cli_binary"
	Owner      string
	Repo       string
	ProjectPath string
	APIBaseURL string
}

// detectorEnv abstracts the filesystem/environment/PATH lookups the
// manager consults, so tests can substitute fakes without touching the
// real filesystem.
type detectorEnv struct {
	workDir    string
	glob       func(pattern string) ([]string, error)
	readFile   func(path string) ([]byte, error)
	getenv     func(key string) string
	lookupPath func(binary string) (string, error)
	gitRemote  func() (string, error)
}

func defaultDetectorEnv(workDir string) detectorEnv {
	return detectorEnv{
		workDir:  workDir,
		glob:     filepath.Glob,
		readFile: os.ReadFile,
		getenv:   os.Getenv,
		lookupPath: func(binary string) (string, error) {
			return exec.LookPath(binary)
		},
		gitRemote: func() (string, error) {
			out, err := exec.Command("git", "remote", "get-url", "origin").Output()
			return strings.TrimSpace(string(out)), err
		},
	}
}

// configFileGlobs maps a platform to the glob patterns that indicate its
// CI config is present in the repo, with the confidence those patterns
// carry per spec §4.M.
var configFileGlobs = map[string][]struct {
	pattern    string
	confidence float64
}{
	"github":  {{".github/workflows/*.yml", 0.95}, {".github/workflows/*.yaml", 0.95}},
	"gitlab":  {{".gitlab-ci.yml", 0.9}},
	"jenkins": {{"Jenkinsfile", 0.9}},
}

// gitRemotePatterns matches a git remote URL against a platform, per
// spec §4.M's 0.8-confidence signal.
var gitRemotePatterns = map[string]*regexp.Regexp{
	"github": regexp.MustCompile(`github\.com`),
	"gitlab": regexp.MustCompile(`gitlab\.com|gitlab\.`),
}

// envSignals maps a platform to the env vars characteristic of running
// inside its own CI, with confidence per spec §4.M.
var envSignals = map[string][]struct {
	key        string
	confidence float64
}{
	"github":  {{"GITHUB_ACTIONS", 0.95}, {"GITHUB_REPOSITORY", 0.7}},
	"gitlab":  {{"GITLAB_CI", 0.95}, {"CI_PROJECT_PATH", 0.7}},
	"jenkins": {{"JENKINS_URL", 0.9}, {"BUILD_NUMBER", 0.7}},
}

// cliBinaries maps a platform to its CLI binary name, confidence 0.6 per
// spec §4.M when found on PATH.
var cliBinaries = map[string]string{
	"github": "gh",
	"gitlab": "glab",
}

// Manager detects the CI platform in use for the current working tree and
// resolves the best adapter for it, per spec §4.M.
type Manager struct {
	Registry *Registry
	env      detectorEnv
}

// NewManager builds a Manager over workDir using the real filesystem/PATH.
func NewManager(reg *Registry, workDir string) *Manager {
	return &Manager{Registry: reg, env: defaultDetectorEnv(workDir)}
}

// Detect runs all four detection sources and merges them, keeping the
// highest-confidence signal per platform. Repo details (owner, repo,
// project path, API base URL) that the kept signal lacks are filled in
// from the other signals for the same platform.
func (m *Manager) Detect(ctx context.Context) []Detection {
	best := make(map[string]Detection)

	keep := func(d Detection) {
		other, ok := best[d.Platform]
		if ok && d.Confidence <= other.Confidence {
			d, other = other, d
		}
		if d.Owner == "" && d.Repo == "" {
			d.Owner, d.Repo = other.Owner, other.Repo
		}
		if d.ProjectPath == "" {
			d.ProjectPath = other.ProjectPath
		}
		if d.APIBaseURL == "" {
			d.APIBaseURL = other.APIBaseURL
		}
		best[d.Platform] = d
	}

	for platform, globs := range configFileGlobs {
		for _, g := range globs {
			matches, err := m.env.glob(filepath.Join(m.env.workDir, g.pattern))
			if err == nil && len(matches) > 0 {
				keep(Detection{Platform: platform, Confidence: g.confidence, Source: "config_file"})
			}
		}
	}

	if remote, err := m.env.gitRemote(); err == nil && remote != "" {
		for platform, re := range gitRemotePatterns {
			if re.MatchString(remote) {
				owner, repo := ownerRepoFromRemote(remote)
				keep(Detection{Platform: platform, Confidence: 0.8, Source: "git_remote", Owner: owner, Repo: repo})
			}
		}
	}

	for platform, signals := range envSignals {
		for _, s := range signals {
			if m.env.getenv(s.key) != "" {
				keep(Detection{Platform: platform, Confidence: s.confidence, Source: "env"})
			}
		}
	}

	for platform, binary := range cliBinaries {
		if _, err := m.env.lookupPath(binary); err == nil {
			keep(Detection{Platform: platform, Confidence: 0.6, Source: "cli_binary"})
		}
	}

	out := make([]Detection, 0, len(best))
	for _, d := range best {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Resolve detects platforms, then returns the adapter for the
// highest-confidence detection whose chosen client reports availability.
func (m *Manager) Resolve(ctx context.Context) (adapters.Adapter, *Detection, error) {
	detections := m.Detect(ctx)
	for i := range detections {
		d := detections[i]
		cfg := adapters.Config{
			Owner:       d.Owner,
			Repo:        d.Repo,
			ProjectPath: d.ProjectPath,
			APIBaseURL:  d.APIBaseURL,
		}
		adapter, err := m.Registry.GetCached(d.Platform, m.env.workDir, cfg)
		if err != nil {
			continue
		}
		if checker, ok := adapter.(clientChecker); ok {
			if _, err := checker.GetActiveClient(ctx); err != nil {
				continue
			}
		}
		return adapter, &d, nil
	}
	return nil, nil, ErrNoPlatformDetected
}

// ErrNoPlatformDetected is returned when no detection source matched any
// registered platform, or none of the matched platforms has an available
// client.
var ErrNoPlatformDetected = &detectionError{}

type detectionError struct{}

func (*detectionError) Error() string { return "ci manager: no CI platform detected with an available client" }

// clientChecker is satisfied by any adapter embedding *adapters.Base,
// whose GetActiveClient is promoted onto the concrete adapter type.
type clientChecker interface {
	GetActiveClient(ctx context.Context) (clients.Client, error)
}

func ownerRepoFromRemote(remote string) (owner, repo string) {
	remote = strings.TrimSuffix(remote, ".git")
	remote = strings.TrimPrefix(remote, "git@")
	remote = strings.TrimPrefix(remote, "https://")
	remote = strings.TrimPrefix(remote, "http://")
	remote = strings.Replace(remote, ":", "/", 1)
	parts := strings.Split(remote, "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}
