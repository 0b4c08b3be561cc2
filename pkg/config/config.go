// Package config loads merlya-agentd's YAML configuration, expanding
// environment variables and merging user overrides onto built-in
// defaults, grounded on the teacher's pkg/config/loader.go Initialize
// pattern.
package config

import (
	"time"

	"github.com/merlya/merlya-core/pkg/resilience"
	"github.com/merlya/merlya-core/pkg/sentinel"
	"github.com/merlya/merlya-core/pkg/sources"
	"github.com/merlya/merlya-core/pkg/sshpool"
)

// DaemonYAML configures the HTTP API surface.
type DaemonYAML struct {
	HTTPAddr string `yaml:"http_addr"`
}

// SSHYAML configures the connection pool and host-key policy.
type SSHYAML struct {
	KnownHostsPath        string `yaml:"known_hosts_path"`
	HostKeyMode            string `yaml:"host_key_mode"`
	MaxIdleTime            string `yaml:"max_idle_time"`
	FailureThreshold       int    `yaml:"failure_threshold"`
	CircuitBreakerTimeout  string `yaml:"circuit_breaker_timeout"`
	PermanentFailureCount  int    `yaml:"permanent_failure_count"`
}

// RetryYAML overrides resilience.RetryConfig's defaults.
type RetryYAML struct {
	MaxAttempts  int    `yaml:"max_attempts"`
	InitialDelay string `yaml:"initial_delay"`
	MaxDelay     string `yaml:"max_delay"`
	Base         float64 `yaml:"base"`
}

// BreakerYAML overrides resilience.BreakerConfig's defaults.
type BreakerYAML struct {
	FailureThreshold int    `yaml:"failure_threshold"`
	RecoveryTimeout  string `yaml:"recovery_timeout"`
	SuccessThreshold int    `yaml:"success_threshold"`
}

// CredentialsYAML configures secret resolution and storage paths.
type CredentialsYAML struct {
	VaultPath string `yaml:"vault_path"`
}

// SourcesYAML configures the data-source discovery registry.
type SourcesYAML struct {
	RegistryPath string `yaml:"registry_path"`
	TTL          string `yaml:"ttl"`
}

// ConversationYAML selects and configures the conversation store backend.
type ConversationYAML struct {
	Backend    string `yaml:"backend"` // "sqlite" or "file"
	SQLitePath string `yaml:"sqlite_path"`
	FileDir    string `yaml:"file_dir"`
}

// HealthCheckYAML is one sentinel.HealthCheck as read from YAML.
type HealthCheckYAML struct {
	Name              string         `yaml:"name"`
	Target            string         `yaml:"target"`
	CheckType         string         `yaml:"check_type"`
	Parameters        map[string]any `yaml:"parameters"`
	IntervalSeconds   int            `yaml:"interval_seconds"`
	TimeoutSeconds    int            `yaml:"timeout_seconds"`
	ThresholdFailures int            `yaml:"threshold_failures"`
	Enabled           bool           `yaml:"enabled"`
}

// SentinelYAML configures the proactive health monitor.
type SentinelYAML struct {
	Checks []HealthCheckYAML `yaml:"checks"`
}

// CIYAML lists which CI platform adapters to register.
type CIYAML struct {
	Platforms []string `yaml:"platforms"`
}

// MerlyaYAMLConfig is the top-level merlya.yaml document shape.
type MerlyaYAMLConfig struct {
	Daemon       DaemonYAML       `yaml:"daemon"`
	SSH          SSHYAML          `yaml:"ssh"`
	Retry        RetryYAML        `yaml:"retry"`
	Breaker      BreakerYAML      `yaml:"breaker"`
	Credentials  CredentialsYAML  `yaml:"credentials"`
	Sources      SourcesYAML      `yaml:"sources"`
	Conversation ConversationYAML `yaml:"conversation"`
	Sentinel     SentinelYAML     `yaml:"sentinel"`
	CI           CIYAML           `yaml:"ci"`
}

// Config is the fully resolved, ready-to-use configuration: parsed YAML
// merged onto each subsystem's typed defaults.
type Config struct {
	configDir string

	HTTPAddr string

	SSHPool    sshpool.PoolConfig
	HostKeyMode string
	KnownHostsPath string

	Retry   resilience.RetryConfig
	Breaker resilience.BreakerConfig

	VaultPath string

	SourcesRegistryPath string
	SourcesTTL          time.Duration

	ConversationBackend   string
	ConversationSQLitePath string
	ConversationFileDir    string

	HealthChecks []sentinel.HealthCheck

	CIPlatforms []string
}

// Stats summarizes the loaded configuration for the health endpoint,
// mirroring the teacher's cfg.Stats() health-check payload.
type Stats struct {
	HealthChecks int
	CIPlatforms  int
}

// Stats reports counts of loaded configuration entities.
func (c *Config) Stats() Stats {
	return Stats{HealthChecks: len(c.HealthChecks), CIPlatforms: len(c.CIPlatforms)}
}
