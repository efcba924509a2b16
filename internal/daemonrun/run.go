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
	"strings"
	"syscall"
	"time"

	"huddle/internal/app"
	"huddle/internal/config"
	"huddle/internal/daemon"
	"huddle/internal/daemonctl"
	"huddle/internal/deps"
	"huddle/internal/logging"
	"huddle/internal/preflight"
	"huddle/internal/watcher"
)

// Options configures server process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// WatchOnly runs the inbox watcher in the foreground without the HTTP
	// server or the single-instance lock.
	WatchOnly bool
}

// Run starts the huddle server runtime loop and blocks until cmdCtx is
// cancelled or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.WatchOnly && strings.TrimSpace(cfg.Watch.InboxDir) == "" {
		return errors.New("watch.inbox_dir is not configured")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("huddle-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:           level,
		Format:          cfg.Logging.Format,
		OutputPaths:     []string{"stdout", logPath},
		Development:     opts.Development,
		ComponentLevels: cfg.Logging.ComponentLevels,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "huddle-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.WorkDir, "processed")},
	)

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("assemble huddle", logging.Error(err))
		return err
	}
	defer a.Close()

	for _, failed := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run `huddle doctor` for details"),
		)
	}

	if opts.WatchOnly {
		return runWatcher(signalCtx, cfg, a, logger)
	}

	pidPath := daemonctl.PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, a, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("huddle server start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check api.bind and that no other huddle server holds the lock"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("huddle server shutting down")
	return nil
}

func runWatcher(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger) error {
	w, err := watcher.New(watcher.OptionsFromConfig(cfg), a, logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("inbox watcher stopped")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("worker_backend", cfg.Worker.Backend),
		logging.Bool("worker_key_present", cfg.WorkerConfigured()),
		logging.String("transcription_backend", cfg.Transcription.Backend),
		logging.Bool("transcription_key_present", strings.TrimSpace(cfg.Transcription.APIKey) != ""),
		logging.String("assessor", cfg.Triage.Assessor),
		logging.String("ffmpeg_binary", deps.ResolveFFmpegPath()),
		logging.Bool("mail_configured", cfg.MailConfigured()),
		logging.Bool("whisperx_cuda", cfg.WhisperX.CUDAEnabled),
		logging.String("whisperx_vad_method", cfg.WhisperX.VADMethod),
	}
	for _, status := range preflight.CheckSystemDeps(cfg) {
		attrs = append(attrs, logging.Bool(strings.ToLower(strings.ReplaceAll(status.Name, " ", "_"))+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
