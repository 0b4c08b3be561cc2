package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/merlya/merlya-core/pkg/resilience"
	"github.com/merlya/merlya-core/pkg/sentinel"
	"github.com/merlya/merlya-core/pkg/sshpool"
)

// Initialize loads merlya.yaml from configDir, expands environment
// variables, merges it onto each subsystem's built-in defaults, and
// returns a ready-to-use Config. Mirrors the teacher's config.Initialize
// entry point.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	raw, err := loadYAML(configDir)
	if err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}

	cfg, err := resolve(configDir, raw)
	if err != nil {
		return nil, fmt.Errorf("config: resolve: %w", err)
	}

	log.Info("configuration initialized",
		"health_checks", len(cfg.HealthChecks),
		"ci_platforms", len(cfg.CIPlatforms))
	return cfg, nil
}

func loadYAML(configDir string) (*MerlyaYAMLConfig, error) {
	path := filepath.Join(configDir, "merlya.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &MerlyaYAMLConfig{}, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var raw MerlyaYAMLConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &raw, nil
}

// expandHome replaces a leading "~" with the user's home directory, since
// os.ReadFile and database/sql drivers don't do shell-style tilde
// expansion themselves.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("invalid duration in merlya.yaml, using default", "value", s, "default", fallback, "error", err)
		return fallback
	}
	return d
}

func resolve(configDir string, raw *MerlyaYAMLConfig) (*Config, error) {
	cfg := &Config{configDir: configDir}

	cfg.HTTPAddr = raw.Daemon.HTTPAddr
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.HostKeyMode = raw.SSH.HostKeyMode
	if cfg.HostKeyMode == "" {
		cfg.HostKeyMode = string(sshpool.HostKeyWarning)
	}
	cfg.KnownHostsPath = expandHome(raw.SSH.KnownHostsPath)
	if cfg.KnownHostsPath == "" {
		cfg.KnownHostsPath = expandHome("~/.ssh/known_hosts")
	}
	cfg.SSHPool = sshpool.PoolConfig{
		MaxIdleTime:           parseDuration(raw.SSH.MaxIdleTime, 10*time.Minute),
		FailureThreshold:      raw.SSH.FailureThreshold,
		CircuitBreakerTimeout: parseDuration(raw.SSH.CircuitBreakerTimeout, 60*time.Second),
		PermanentFailureCount: raw.SSH.PermanentFailureCount,
	}

	retryDefaults := resilience.DefaultRetryConfig()
	userRetry := resilience.RetryConfig{
		MaxAttempts:  raw.Retry.MaxAttempts,
		InitialDelay: parseDuration(raw.Retry.InitialDelay, 0),
		MaxDelay:     parseDuration(raw.Retry.MaxDelay, 0),
		Base:         raw.Retry.Base,
	}
	if err := mergo.Merge(&retryDefaults, userRetry, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge retry config: %w", err)
	}
	cfg.Retry = retryDefaults

	breakerDefaults := resilience.DefaultBreakerConfig()
	userBreaker := resilience.BreakerConfig{
		FailureThreshold: raw.Breaker.FailureThreshold,
		RecoveryTimeout:  parseDuration(raw.Breaker.RecoveryTimeout, 0),
		SuccessThreshold: raw.Breaker.SuccessThreshold,
	}
	if err := mergo.Merge(&breakerDefaults, userBreaker, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge breaker config: %w", err)
	}
	cfg.Breaker = breakerDefaults

	cfg.VaultPath = expandHome(raw.Credentials.VaultPath)
	if cfg.VaultPath == "" {
		cfg.VaultPath = expandHome("~/.merlya/credentials.json")
	}

	cfg.SourcesRegistryPath = expandHome(raw.Sources.RegistryPath)
	if cfg.SourcesRegistryPath == "" {
		cfg.SourcesRegistryPath = expandHome("~/.merlya/sources.json")
	}
	cfg.SourcesTTL = parseDuration(raw.Sources.TTL, 24*time.Hour)

	cfg.ConversationBackend = raw.Conversation.Backend
	if cfg.ConversationBackend == "" {
		cfg.ConversationBackend = "file"
	}
	cfg.ConversationSQLitePath = expandHome(raw.Conversation.SQLitePath)
	if cfg.ConversationSQLitePath == "" {
		cfg.ConversationSQLitePath = expandHome("~/.merlya/conversations.db")
	}
	cfg.ConversationFileDir = expandHome(raw.Conversation.FileDir)
	if cfg.ConversationFileDir == "" {
		cfg.ConversationFileDir = expandHome("~/.merlya/conversations")
	}

	for _, c := range raw.Sentinel.Checks {
		cfg.HealthChecks = append(cfg.HealthChecks, sentinel.HealthCheck{
			Name:              c.Name,
			Target:            c.Target,
			CheckType:         sentinel.CheckType(c.CheckType),
			Parameters:        c.Parameters,
			IntervalSeconds:   c.IntervalSeconds,
			TimeoutSeconds:    c.TimeoutSeconds,
			ThresholdFailures: c.ThresholdFailures,
			Enabled:           c.Enabled,
		})
	}

	cfg.CIPlatforms = raw.CI.Platforms
	if len(cfg.CIPlatforms) == 0 {
		cfg.CIPlatforms = []string{"github"}
	}

	return cfg, nil
}
