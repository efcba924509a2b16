package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"huddle/internal/config"
	"huddle/internal/fileutil"
	"huddle/internal/logging"
	"huddle/internal/transcript"
	"huddle/internal/triage"
)

// Ingester is the subset of the app the watcher drives.
type Ingester interface {
	IngestAudio(ctx context.Context, audio []byte, source string) (transcript.Reference, error)
	RunTriage(ctx context.Context, ref transcript.Reference) (triage.Outcome, error)
}

// Options configures a Watcher.
type Options struct {
	InboxDir      string
	Extensions    []string
	MaxConcurrent int
	Settle        time.Duration
	AutoTriage    bool
	ProcessedDir  string
	FailedDir     string
}

// OptionsFromConfig maps the [watch] section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InboxDir:      cfg.Watch.InboxDir,
		Extensions:    cfg.Watch.Extensions,
		MaxConcurrent: cfg.Watch.MaxConcurrent,
		Settle:        time.Duration(cfg.Watch.SettleMillis) * time.Millisecond,
		AutoTriage:    cfg.Watch.AutoTriage,
		ProcessedDir:  filepath.Join(cfg.Paths.WorkDir, "processed"),
		FailedDir:     filepath.Join(cfg.Paths.WorkDir, "failed"),
	}
}

// Watcher monitors one inbox directory.
type Watcher struct {
	opts     Options
	ingester Ingester
	logger   *slog.Logger

	semaphore chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inflight map[string]struct{}
	ready    chan string
	done     chan struct{}
}

// New validates opts and prepares the inbox and output directories.
func New(opts Options, ingester Ingester, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(opts.InboxDir) == "" {
		return nil, errors.New("watcher: inbox directory required")
	}
	if ingester == nil {
		return nil, errors.New("watcher: ingester required")
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	for _, dir := range []string{opts.InboxDir, opts.ProcessedDir, opts.FailedDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("watcher: create %s: %w", dir, err)
		}
	}
	return &Watcher{
		opts:      opts,
		ingester:  ingester,
		logger:    logging.NewComponentLogger(logger, "watcher"),
		semaphore: make(chan struct{}, opts.MaxConcurrent),
		timers:    make(map[string]*time.Timer),
		inflight:  make(map[string]struct{}),
		ready:     make(chan string, 64),
		done:      make(chan struct{}),
	}, nil
}

// Run watches the inbox until ctx is done, then waits for in-flight ingests.
// A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: create: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.opts.InboxDir); err != nil {
		return fmt.Errorf("watcher: add %s: %w", w.opts.InboxDir, err)
	}

	w.logger.Info("inbox watcher started",
		logging.String(logging.FieldEventType, "watcher_started"),
		logging.String("inbox", w.opts.InboxDir),
		logging.Int("max_concurrent", w.opts.MaxConcurrent),
		logging.String("extensions", strings.Join(w.opts.Extensions, ",")),
	)
	w.scanExisting()

	for {
		select {
		case <-ctx.Done():
			close(w.done)
			w.stopTimers()
			w.wg.Wait()
			w.logger.Info("inbox watcher stopped", logging.String(logging.FieldEventType, "watcher_stopped"))
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher: events channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.accepts(event.Name) {
				w.logger.Debug("ignoring inbox file", logging.String("path", event.Name))
				continue
			}
			w.schedule(event.Name)

		case path := <-w.ready:
			select {
			case w.semaphore <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()
				w.handle(ctx, path)
			}()

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher: errors channel closed")
			}
			logging.WarnWithContext(w.logger, "inbox watch error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some inbox events may have been missed"),
			)
		}
	}
}

func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.opts.InboxDir)
	if err != nil {
		logging.WarnWithContext(w.logger, "inbox scan failed", "watcher_scan_failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		path := filepath.Join(w.opts.InboxDir, entry.Name())
		if entry.Type().IsRegular() && w.accepts(path) {
			w.schedule(path)
		}
	}
}

func (w *Watcher) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(w.opts.Extensions, ext)
}

// schedule (re)starts the settle timer for path. A file that is still being
// written keeps pushing its deadline out.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[path]; busy {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.opts.Settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.opts.Settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.inflight[path] = struct{}{}
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	defer func() {
		w.mu.Lock()
		delete(w.inflight, path)
		w.mu.Unlock()
	}()
	source := filepath.Base(path)
	logger := w.logger.With(logging.String("source", source))

	audio, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		logging.ErrorWithContext(logger, "read inbox file failed", "watcher_read_failed", logging.Error(err))
		return
	}
	ref, err := w.ingester.IngestAudio(ctx, audio, source)
	if err != nil && ctx.Err() != nil {
		logger.Info("inbox ingest interrupted by shutdown", logging.String(logging.FieldEventType, "watcher_ingest_interrupted"))
		return
	}
	if err != nil {
		logging.ErrorWithContext(logger, "inbox ingest failed", "watcher_ingest_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file was moved to the failed directory; fix the backend and move it back"),
		)
		w.move(logger, path, w.opts.FailedDir)
		return
	}
	logger.Info("inbox file ingested",
		logging.String(logging.FieldEventType, "watcher_ingested"),
		logging.String(logging.FieldReference, ref.String()),
	)
	w.move(logger, path, w.opts.ProcessedDir)

	if !w.opts.AutoTriage {
		return
	}
	outcome, err := w.ingester.RunTriage(ctx, ref)
	if err != nil {
		logging.WarnWithContext(logger, "auto triage failed", "watcher_triage_failed",
			logging.String(logging.FieldReference, ref.String()),
			logging.Error(err),
		)
		return
	}
	logger.Info("auto triage delivered",
		logging.String(logging.FieldEventType, "watcher_triage_delivered"),
		logging.String(logging.FieldReference, ref.String()),
		logging.String(logging.FieldCapability, outcome.Capability.String()),
	)
}

func (w *Watcher) move(logger *slog.Logger, path, dir string) {
	if dir == "" {
		return
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = strings.TrimSuffix(dest, ext) + "-" + time.Now().UTC().Format("20060102T150405") + ext
	}
	if err := fileutil.MoveFile(path, dest); err != nil {
		logging.WarnWithContext(logger, "move inbox file failed", "watcher_move_failed",
			logging.String("destination", dest),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the file may be ingested again after a restart"),
		)
	}
}
