package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evanschultz/taskboard/internal/adapters/server"
	"github.com/evanschultz/taskboard/internal/adapters/server/events"
	"github.com/evanschultz/taskboard/internal/adapters/storage/memory"
	"github.com/evanschultz/taskboard/internal/adapters/storage/mock"
	"github.com/evanschultz/taskboard/internal/adapters/storage/redisstore"
	"github.com/evanschultz/taskboard/internal/adapters/storage/remote"
	"github.com/evanschultz/taskboard/internal/adapters/storage/sqlite"
	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/config"
	"github.com/evanschultz/taskboard/internal/platform"
	"github.com/evanschultz/taskboard/internal/tui"
)

// version is set at build time.
var version = "dev"

// program is the part of tea.Program the TUI command needs.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests replace it.
var programFactory = func(ctx context.Context, m tea.Model) program {
	return tea.NewProgram(m, tea.WithContext(ctx))
}

// serveRunner runs serve mode; tests replace it.
var serveRunner = server.Run

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command line through fang.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	appName    string
	devMode    bool
}

// runtimeEnv is the resolved configuration of one invocation.
type runtimeEnv struct {
	opts       rootOptions
	paths      platform.Paths
	configPath string
	cfg        config.Config
}

// newRootCommand builds the command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := rootOptions{appName: "taskboard", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("TASKBOARD_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TASKBOARD_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban boards and a task editor in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveRuntime(opts)
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), env, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(newServeCommand(&opts, stderr), newPathsCommand(&opts), newInitCommand(&opts))
	return root
}

// newServeCommand builds the serve subcommand.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var overrides config.ServerConfig
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mock repository over REST, MCP and a websocket change feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveRuntime(*opts)
			if err != nil {
				return err
			}
			applyServeOverrides(&env.cfg.Server, overrides)
			return runServe(cmd.Context(), env, stderr)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&overrides.HTTPBind, "http", "", "HTTP listen address")
	flags.StringVar(&overrides.APIEndpoint, "api-endpoint", "", "HTTP API base endpoint")
	flags.StringVar(&overrides.MCPEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint")
	flags.StringVar(&overrides.EventsEndpoint, "events-endpoint", "", "websocket change feed endpoint")
	flags.StringSliceVar(&overrides.CORSOrigins, "cors-origin", nil, "allowed CORS origin (repeatable)")
	return cmd
}

// newPathsCommand builds the paths subcommand.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveRuntime(*opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", env.opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", env.opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", env.configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", env.paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", env.cfg.Drafts.Path)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", env.paths.LogDir)
			return nil
		},
	}
}

// newInitCommand builds the init subcommand.
func newInitCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the resolved configuration to the config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveRuntime(*opts)
			if err != nil {
				return err
			}
			if _, statErr := os.Stat(env.configPath); statErr == nil && !force {
				return fmt.Errorf("config %q already exists (use --force to overwrite)", env.configPath)
			}
			if err := config.Save(env.configPath, env.cfg); err != nil {
				return fmt.Errorf("write config %q: %w", env.configPath, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", env.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// resolveRuntime resolves paths, env overrides and the config file.
func resolveRuntime(opts rootOptions) (runtimeEnv, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return runtimeEnv{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TASKBOARD_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := paths.StorePath
	envDB := strings.TrimSpace(os.Getenv("TASKBOARD_DB_PATH"))
	if envDB != "" {
		dbPath = envDB
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return runtimeEnv{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if envDB != "" {
		cfg.Drafts.Path = envDB
	}
	return runtimeEnv{opts: opts, paths: paths, configPath: configPath, cfg: cfg}, nil
}

// runTUI wires the repository, draft store and modal into the Bubble Tea program.
func runTUI(ctx context.Context, env runtimeEnv, stderr io.Writer) error {
	logger, err := newRuntimeLogger(stderr, env.opts.appName, env.opts.devMode, env.cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	// The board owns the terminal; runtime logs go to the dev file only.
	logger.SetConsoleEnabled(false)
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()
	logStartup(logger, env, "tui")

	repo, feed, err := openRepository(env.cfg)
	if err != nil {
		logger.Error("repository setup failed", "backend", env.cfg.Repository.Backend, "err", err)
		return err
	}
	logger.Info("repository ready", "backend", env.cfg.Repository.Backend)

	drafts, closeDrafts, err := openDrafts(ctx, env.cfg)
	if err != nil {
		logger.Error("draft store setup failed", "backend", env.cfg.Drafts.Backend, "err", err)
		return err
	}
	defer func() {
		if closeErr := closeDrafts(); closeErr != nil {
			logger.Warn("draft store close failed", "backend", env.cfg.Drafts.Backend, "err", closeErr)
		}
	}()
	logger.Info("draft store ready", "backend", env.cfg.Drafts.Backend, "autosave", env.cfg.Drafts.Autosave)

	inval := app.NewInvalidations()
	modal := app.NewTaskModal(repo, drafts, uuid.NewString, app.ModalConfig{
		DraftPolicy:   draftPolicy(env.cfg),
		Invalidations: inval,
	})
	opts := []tui.Option{
		tui.WithInvalidations(inval),
		tui.WithDragThreshold(env.cfg.Board.DragThreshold),
		tui.WithCloseDelay(env.cfg.CloseDelayDuration()),
	}
	if feed != nil {
		opts = append(opts, tui.WithChangeFeed(feed))
		logger.Info("change feed enabled")
	}

	logger.Info("command flow start", "command", "tui")
	if _, err := programFactory(ctx, tui.NewModel(repo, modal, opts...)).Run(); err != nil {
		logger.Error("command flow failed", "command", "tui", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// runServe serves the in-process mock repository.
func runServe(ctx context.Context, env runtimeEnv, stderr io.Writer) error {
	logger, err := newRuntimeLogger(stderr, env.opts.appName, env.opts.devMode, env.cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()
	logStartup(logger, env, "serve")

	repo := newMockRepository(env.cfg)
	srv := env.cfg.Server
	logger.Info("command flow start", "command", "serve", "bind", srv.HTTPBind)
	err = serveRunner(ctx, server.Config{
		HTTPBind:       srv.HTTPBind,
		APIEndpoint:    srv.APIEndpoint,
		MCPEndpoint:    srv.MCPEndpoint,
		EventsEndpoint: srv.EventsEndpoint,
		CORSOrigins:    srv.CORSOrigins,
		ServerName:     env.opts.appName,
		ServerVersion:  version,
	}, server.Dependencies{
		Repo:   repo,
		Hub:    events.NewHub(logger.Console()),
		Logger: logger.Console(),
	})
	if err != nil {
		logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	logger.Info("command flow complete", "command", "serve")
	return nil
}

// logStartup records the resolved runtime state.
func logStartup(logger *runtimeLogger, env runtimeEnv, command string) {
	logger.Info("startup configuration resolved", "app", env.opts.appName, "dev_mode", env.opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", env.configPath, "data_dir", env.paths.DataDir, "db_path", env.cfg.Drafts.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
}

// openRepository returns the configured task repository and, for the remote
// backend, its change feed.
func openRepository(cfg config.Config) (app.TaskRepository, tui.ChangeFeed, error) {
	switch cfg.Repository.Backend {
	case config.RepositoryRemote:
		var clientOpts []remote.Option
		if d := cfg.TimeoutDuration(); d > 0 {
			clientOpts = append(clientOpts, remote.WithTimeout(d))
		}
		if raw := strings.TrimSpace(cfg.Repository.EventsURL); raw != "" {
			clientOpts = append(clientOpts, remote.WithEventsURL(raw))
		}
		client, err := remote.New(cfg.Repository.RemoteURL, clientOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("configure remote repository: %w", err)
		}
		return client, client.Subscribe, nil
	default:
		return newMockRepository(cfg), nil, nil
	}
}

// newMockRepository builds the fixture-backed repository.
func newMockRepository(cfg config.Config) *mock.Repository {
	return mock.New(
		mock.WithLatency(cfg.LatencyDuration()),
		mock.WithUpdateFailureRate(cfg.Repository.UpdateFailureRate),
	)
}

// openDrafts returns the configured draft store with its close func.
func openDrafts(ctx context.Context, cfg config.Config) (app.DraftStore, func() error, error) {
	switch cfg.Drafts.Backend {
	case config.DraftRedis:
		store, err := redisstore.Dial(ctx, cfg.Drafts.RedisAddr, cfg.Drafts.RedisKey)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis draft store: %w", err)
		}
		return store, store.Close, nil
	case config.DraftMemory:
		return memory.NewDrafts(), func() error { return nil }, nil
	case config.DraftSQLite, "":
		store, err := sqlite.Open(cfg.Drafts.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite draft store: %w", err)
		}
		return store.Drafts(), store.Close, nil
	default:
		return nil, nil, errors.New("unknown draft backend: " + string(cfg.Drafts.Backend))
	}
}

// draftPolicy maps the autosave config onto the modal's draft policy.
func draftPolicy(cfg config.Config) app.DraftPolicy {
	if cfg.Drafts.Autosave == config.AutosaveImmediate {
		return app.DraftPolicy{Mode: app.DraftImmediate}
	}
	policy := app.DefaultDraftPolicy()
	if d := cfg.IdleDelayDuration(); d > 0 {
		policy.IdleDelay = d
	}
	return policy
}

// applyServeOverrides copies non-empty flag values over the config.
func applyServeOverrides(dst *config.ServerConfig, src config.ServerConfig) {
	if v := strings.TrimSpace(src.HTTPBind); v != "" {
		dst.HTTPBind = v
	}
	if v := strings.TrimSpace(src.APIEndpoint); v != "" {
		dst.APIEndpoint = v
	}
	if v := strings.TrimSpace(src.MCPEndpoint); v != "" {
		dst.MCPEndpoint = v
	}
	if v := strings.TrimSpace(src.EventsEndpoint); v != "" {
		dst.EventsEndpoint = v
	}
	if len(src.CORSOrigins) > 0 {
		dst.CORSOrigins = append([]string(nil), src.CORSOrigins...)
	}
}

// parseBoolEnv reads a boolean env var; ok is false when unset or invalid.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
