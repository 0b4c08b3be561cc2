package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlya/merlya-core/pkg/ci/adapters"
)

func TestRegistryGetCachedMemoizes(t *testing.T) {
	reg := New()
	calls := 0
	reg.Register("github", func(cfg adapters.Config) (adapters.Adapter, error) {
		calls++
		return adapters.NewGitLab(cfg) // any Adapter works for this test
	})

	first, err := reg.GetCached("github", "repo-a", adapters.Config{})
	require.NoError(t, err)
	second, err := reg.GetCached("github", "repo-a", adapters.Config{})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	_, err = reg.GetCached("github", "repo-b", adapters.Config{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRegistryUnknownPlatform(t *testing.T) {
	reg := New()
	_, err := reg.GetCached("bogus", "k", adapters.Config{})
	assert.Error(t, err)
}

func TestRegistryResetInstance(t *testing.T) {
	reg := New()
	reg.Register("github", func(cfg adapters.Config) (adapters.Adapter, error) {
		return adapters.NewGitLab(cfg)
	})
	first, _ := reg.GetCached("github", "k", adapters.Config{})
	reg.ResetInstance()
	second, _ := reg.GetCached("github", "k", adapters.Config{})
	assert.NotSame(t, first, second)
}

func TestRegistryListPreservesRegistrationOrder(t *testing.T) {
	reg := New()
	reg.Register("jenkins", nil)
	reg.Register("github", nil)
	reg.Register("gitlab", nil)
	assert.Equal(t, []string{"jenkins", "github", "gitlab"}, reg.List())
	assert.Equal(t, []string{"github", "gitlab", "jenkins"}, reg.ListSorted())
}

func TestManagerDetectConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".github", "workflows"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".github", "workflows", "ci.yml"), []byte("name: ci"), 0o644))

	mgr := NewManager(New(), dir)
	mgr.env.gitRemote = func() (string, error) { return "", errors.New("no remote") }
	mgr.env.getenv = func(string) string { return "" }
	mgr.env.lookupPath = func(string) (string, error) { return "", errors.New("not found") }

	detections := mgr.Detect(context.Background())
	require.Len(t, detections, 1)
	assert.Equal(t, "github", detections[0].Platform)
	assert.Equal(t, "config_file", detections[0].Source)
}

func TestManagerDetectMergesHighestConfidence(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(New(), dir)
	mgr.env.gitRemote = func() (string, error) { return "git@github.com:acme/widgets.git", nil }
	mgr.env.getenv = func(key string) string {
		if key == "GITHUB_ACTIONS" {
			return "true"
		}
		return ""
	}
	mgr.env.lookupPath = func(string) (string, error) { return "", errors.New("not found") }

	detections := mgr.Detect(context.Background())
	require.Len(t, detections, 1)
	assert.Equal(t, "github", detections[0].Platform)
	assert.Equal(t, 0.95, detections[0].Confidence) // env GITHUB_ACTIONS beats git_remote's 0.8
	assert.Equal(t, "acme", detections[0].Owner)
	assert.Equal(t, "widgets", detections[0].Repo)
}
