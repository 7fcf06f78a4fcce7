package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/daemon"
	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/preflight"
	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/workflow"
)

// PIDFileName is written under paths.state_dir while the daemon runs.
const PIDFileName = "archivist.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the archivist daemon and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := logging.DaemonLogPath(cfg.Paths.LogDir, time.Now())
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, logging.DaemonLogPattern, cfg.Logging.RetentionDays, logPath)

	pidPath := filepath.Join(cfg.Paths.StateDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	services, err := BuildServices(signalCtx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer services.Close()

	runPreflight(signalCtx, cfg, services, logger)

	d, err := daemon.New(cfg, daemon.Dependencies{
		Store:    store,
		Workflow: NewWorkflow(cfg, store, services, logger),
		Notifier: services.Notifier,
		Offers:   services.Offers,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	logger.Info("archivist daemon ready",
		logging.String("log_path", logPath),
		logging.String("api_address", d.APIAddress()),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.Bool("github_comments", services.GitHub != nil),
	)

	<-signalCtx.Done()
	logger.Info("archivist daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// NewWorkflow wires the archiver, reporter, and notifier into a workflow
// manager.
func NewWorkflow(cfg *config.Config, store *queue.Store, services *Services, logger *slog.Logger) *workflow.Manager {
	deps := workflow.Dependencies{
		Archiver: services.Archiver,
		Notifier: services.Notifier,
		Logger:   logger,
	}
	if services.GitHub != nil {
		deps.Reporter = services.GitHub
	}
	return workflow.NewManager(cfg, store, deps)
}

func runPreflight(ctx context.Context, cfg *config.Config, services *Services, logger *slog.Logger) {
	results := preflight.RunAll(ctx, cfg, services.PreflightTargets())
	for _, result := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run archivist status for details"),
			logging.String(logging.FieldImpact, "archive requests may fail until resolved"),
		)
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
