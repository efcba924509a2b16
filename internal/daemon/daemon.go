package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"huddle/internal/app"
	"huddle/internal/config"
	"huddle/internal/deps"
	"huddle/internal/logging"
	"huddle/internal/notifications"
	"huddle/internal/preflight"
	"huddle/internal/watcher"
)

// Daemon owns the API server and inbox watcher and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	app    *app.App
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	ListenAddr   string
	Watching     string
	Dependencies []deps.Status
}

// New constructs a daemon around an assembled app.
func New(cfg *config.Config, a *app.App, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || a == nil {
		return nil, errors.New("daemon requires config and app")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		app:      a,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the API server, and launches the
// inbox watcher when one is configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another huddle server instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	if inbox := strings.TrimSpace(d.cfg.Watch.InboxDir); inbox != "" {
		w, err := watcher.New(watcher.OptionsFromConfig(d.cfg), d.app, d.logger)
		if err != nil {
			cancel()
			d.api.stop()
			_ = d.lock.Unlock()
			return fmt.Errorf("start watcher: %w", err)
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := w.Run(runCtx); err != nil {
				logging.ErrorWithContext(d.logger, "inbox watcher exited", "watcher_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "audio dropped into the inbox will not be ingested"),
				)
			}
		}()
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("huddle server started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()),
		logging.String("backends", d.app.String()),
	)
	return nil
}

// Stop stops the API server and watcher and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("huddle server stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon. The app is owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// ListenAddr returns the bound API address ("" before Start).
func (d *Daemon) ListenAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		ListenAddr:   d.api.addr(),
		Watching:     strings.TrimSpace(d.cfg.Watch.InboxDir),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.app.Notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
