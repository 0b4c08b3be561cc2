// Command merlya-agentd is the daemon entrypoint: it loads configuration,
// wires every subsystem, and exposes both an HTTP health/metrics surface
// and a cobra CLI projecting the skill/credentials/metrics commands from
// the command-line contract, grounded on the teacher's cmd/tarsy/main.go
// flag/env/dotenv bootstrap.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/merlya/merlya-core/pkg/api"
	ciregistry "github.com/merlya/merlya-core/pkg/ci/registry"
	"github.com/merlya/merlya-core/pkg/config"
	"github.com/merlya/merlya-core/pkg/conversation"
	"github.com/merlya/merlya-core/pkg/credentials"
	"github.com/merlya/merlya-core/pkg/llmrouter"
	"github.com/merlya/merlya-core/pkg/netplan"
	"github.com/merlya/merlya-core/pkg/planner"
	"github.com/merlya/merlya-core/pkg/resilience"
	"github.com/merlya/merlya-core/pkg/scanner"
	"github.com/merlya/merlya-core/pkg/sentinel"
	"github.com/merlya/merlya-core/pkg/skills"
	"github.com/merlya/merlya-core/pkg/sources"
	"github.com/merlya/merlya-core/pkg/sshpool"
)

var configDir string

func main() {
	root := &cobra.Command{
		Use:   "merlya-agentd",
		Short: "merlya-core infrastructure automation daemon",
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")

	root.AddCommand(newServeCmd(), newSkillCmd(), newCredentialsCmd(), newMetricsCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvAndConfig loads configDir/.env then merlya.yaml, matching the
// teacher's main()'s sequential dotenv-then-config bootstrap.
func loadEnvAndConfig(ctx context.Context) (*config.Config, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("initializing configuration: %w", err)
	}
	return cfg, nil
}

// daemon bundles every wired subsystem so CLI subcommands that only need
// part of it (skill, credentials, metrics) can build the same pieces the
// serve command does.
type daemon struct {
	cfg        *config.Config
	metrics    *resilience.Metrics
	credStore  *credentials.Store
	sshPool    *sshpool.Pool
	jumpPool   *sshpool.Pool
	netPlanner *netplan.Planner
	scan       *scanner.Scanner
	sent       *sentinel.Sentinel
	ciMgr      *ciregistry.Manager
	skillReg   *skills.Registry
	plan       *planner.Planner
	convStore  conversation.Store
	sourceReg  *sources.Registry
}

type noRoutes struct{}

func (noRoutes) Routes() []netplan.Route { return nil }

func newDaemon(ctx context.Context, cfg *config.Config) (*daemon, error) {
	d := &daemon{cfg: cfg}

	d.metrics = resilience.NewMetrics()
	d.credStore = credentials.NewStore()

	d.sshPool = sshpool.NewPool(cfg.SSHPool)
	d.jumpPool = sshpool.NewPool(cfg.SSHPool)
	d.netPlanner = netplan.NewPlanner(noRoutes{})

	resolver := newCredentialResolver(d.credStore, cfg.KnownHostsPath, sshpool.HostKeyMode(cfg.HostKeyMode))
	runner := sshpool.NewRunner(d.sshPool, d.jumpPool, resolver)
	d.scan = scanner.New(scanner.DefaultConfig(), scanner.NewMemoryCache(), runner)

	alerts := sentinel.NewAlertManager(false, nil, nil, nil)
	d.sent = sentinel.New(sentinel.NewDefaultChecker(nil), alerts)
	for _, check := range cfg.HealthChecks {
		d.sent.AddCheck(check)
	}

	registerCIPlatforms(ciregistry.Default(), cfg.CIPlatforms)
	d.ciMgr = ciregistry.NewManager(ciregistry.Default(), ".")
	d.skillReg = skills.Default()
	if err := skills.LoadAll(d.skillReg, skillsBuiltinDir(), skillsUserDir()); err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}

	unconfigured := llmrouter.Func(func(ctx context.Context, prompt, systemPrompt string, task llmrouter.Task) (string, error) {
		return "", fmt.Errorf("llmrouter: no provider configured for task %q", task)
	})
	d.plan = planner.New(newPlannerGenerator(unconfigured))

	convStore, err := newConversationStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("conversation store: %w", err)
	}
	d.convStore = convStore

	sourceReg, err := sources.NewRegistry(cfg.SourcesRegistryPath, cfg.SourcesTTL)
	if err != nil {
		return nil, fmt.Errorf("sources registry: %w", err)
	}
	d.sourceReg = sourceReg

	return d, nil
}

// newConversationStore builds the configured conversation backend,
// defaulting to the simpler file backend when unset.
func newConversationStore(ctx context.Context, cfg *config.Config) (conversation.Store, error) {
	switch cfg.ConversationBackend {
	case "sqlite":
		return conversation.NewSQLiteStore(ctx, cfg.ConversationSQLitePath)
	default:
		return conversation.NewFileStore(cfg.ConversationFileDir)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the daemon's HTTP API and background schedulers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadEnvAndConfig(ctx)
			if err != nil {
				return err
			}
			d, err := newDaemon(ctx, cfg)
			if err != nil {
				return fmt.Errorf("wiring daemon: %w", err)
			}

			d.sent.Start(ctx)
			defer d.sent.Stop()

			srv := api.NewServer(d.metrics)
			srv.SetSentinel(d.sent)
			srv.SetHealthChecker(func(ctx context.Context) error {
				_, err := d.convStore.ListAll(ctx)
				return err
			})
			if err := srv.ValidateWiring(); err != nil {
				return fmt.Errorf("api server wiring: %w", err)
			}

			slog.Info("starting merlya-agentd", "http_addr", cfg.HTTPAddr)
			if err := srv.Start(ctx, cfg.HTTPAddr); err != nil {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		},
	}
}
