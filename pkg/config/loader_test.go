package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "merlya.yaml"), []byte(content), 0o644))
}

func TestInitializeAppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, []string{"github"}, cfg.CIPlatforms)
}

func TestInitializeMergesUserOverridesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
daemon:
  http_addr: ":9090"
retry:
  max_attempts: 7
breaker:
  failure_threshold: 2
ci:
  platforms: ["github", "gitlab"]
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxDelay) // untouched field keeps its default
	assert.Equal(t, 2, cfg.Breaker.FailureThreshold)
	assert.Equal(t, []string{"github", "gitlab"}, cfg.CIPlatforms)
}

func TestInitializeExpandsEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MERLYA_VAULT_PATH", "/secrets/vault.json")
	writeConfig(t, dir, `
credentials:
  vault_path: "${MERLYA_VAULT_PATH}"
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "/secrets/vault.json", cfg.VaultPath)
}

func TestInitializeParsesSentinelChecks(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
sentinel:
  checks:
    - name: "web-ping"
      target: "web-prod-1"
      check_type: "ping"
      interval_seconds: 30
      enabled: true
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, cfg.HealthChecks, 1)
	assert.Equal(t, "web-ping", cfg.HealthChecks[0].Name)
	assert.True(t, cfg.HealthChecks[0].Enabled)
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "daemon: [this is not a map")

	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}
