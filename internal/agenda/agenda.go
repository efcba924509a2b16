package agenda

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"huddle/internal/config"
	"huddle/internal/fileutil"
	"huddle/internal/services"
)

// lockRetry is the polling interval while waiting on the agenda lock.
const lockRetry = 25 * time.Millisecond

// Store reads and writes the agenda blob. The flock guards against other
// processes; mu serializes callers sharing one Store, since a flock is held
// per file descriptor.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// Open returns a store for cfg.Paths.AgendaFile. The file itself is created
// on first write.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("agenda: config required")
	}
	path := strings.TrimSpace(cfg.Paths.AgendaFile)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "agenda", "open", "paths.agenda_file is empty", nil)
	}
	return &Store{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the agenda file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the stored agenda, or "" when none has been written.
func (s *Store) Read(ctx context.Context) (string, error) {
	if err := s.acquire(ctx, false); err != nil {
		return "", err
	}
	defer s.release()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &services.StorageError{Op: "read agenda", Ref: s.path, Err: err}
	}
	return string(data), nil
}

// Write replaces the agenda with text. Writing blank text clears it.
func (s *Store) Write(ctx context.Context, text string) error {
	if err := s.acquire(ctx, true); err != nil {
		return err
	}
	defer s.release()

	text = strings.TrimSpace(text)
	if text != "" {
		text += "\n"
	}
	if err := fileutil.WriteFileAtomic(s.path, []byte(text), 0o644); err != nil {
		return &services.StorageError{Op: "write agenda", Ref: s.path, Err: err}
	}
	return nil
}

func (s *Store) acquire(ctx context.Context, exclusive bool) error {
	s.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.mu.Unlock()
		return &services.StorageError{Op: "lock agenda", Ref: s.path, Err: err}
	}
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = s.lock.TryLockContext(ctx, lockRetry)
	} else {
		ok, err = s.lock.TryRLockContext(ctx, lockRetry)
	}
	if err != nil {
		s.mu.Unlock()
		return &services.StorageError{Op: "lock agenda", Ref: s.path, Err: err}
	}
	if !ok {
		s.mu.Unlock()
		return &services.StorageError{Op: "lock agenda", Ref: s.path, Err: fmt.Errorf("lock not acquired")}
	}
	return nil
}

func (s *Store) release() {
	_ = s.lock.Unlock()
	s.mu.Unlock()
}
