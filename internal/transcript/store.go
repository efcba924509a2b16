package transcript

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"huddle/internal/config"
	"huddle/internal/services"
)

const (
	fileExt = ".txt"
	// maxCreateAttempts bounds how often Persist advances the reference when a
	// file with the same name already exists (for example from another process).
	maxCreateAttempts = 8
)

// Entry is the catalog record for one transcript.
type Entry struct {
	Reference Reference `json:"reference"`
	Path      string    `json:"path"`
	Shape     Shape     `json:"shape"`
	Bytes     int64     `json:"bytes"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists transcripts as text files indexed by a SQLite catalog.
// Reads take no locks; Append is serialized within the process.
type Store struct {
	dir     string
	catalog *catalog
	clock   *referenceClock
	mu      sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used to derive references.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.clock = newReferenceClock(now)
	}
}

// Open prepares the transcripts directory and catalog described by cfg.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("transcript store: config required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	cat, err := openCatalog(cfg.Paths.CatalogPath)
	if err != nil {
		return nil, &services.StorageError{Op: "open catalog", Ref: cfg.Paths.CatalogPath, Err: err}
	}
	store := &Store{
		dir:     cfg.Paths.TranscriptsDir,
		catalog: cat,
		clock:   newReferenceClock(nil),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Close releases the catalog connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.catalog.close()
}

// Dir returns the directory transcripts are written to.
func (s *Store) Dir() string {
	return s.dir
}

// PersistOption annotates a persisted transcript.
type PersistOption func(*Entry)

// WithShape records how the text was obtained.
func WithShape(shape Shape) PersistOption {
	return func(e *Entry) { e.Shape = shape }
}

// WithSource records where the text came from (an upload name, a file path).
func WithSource(source string) PersistOption {
	return func(e *Entry) { e.Source = strings.TrimSpace(source) }
}

// Persist writes text under a fresh reference and returns it.
func (s *Store) Persist(ctx context.Context, text string, opts ...PersistOption) (Reference, error) {
	entry := Entry{Shape: ShapeText}
	for _, opt := range opts {
		opt(&entry)
	}

	var (
		ref  Reference
		path string
		file *os.File
		err  error
	)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		ref = s.clock.next()
		path = s.pathFor(ref)
		file, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", &services.StorageError{Op: "create", Ref: string(ref), Err: err}
	}

	written, writeErr := file.WriteString(text)
	if syncErr := file.Sync(); writeErr == nil {
		writeErr = syncErr
	}
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(path)
		return "", &services.StorageError{Op: "write", Ref: string(ref), Err: writeErr}
	}

	created, _ := ref.Time()
	entry.Reference = ref
	entry.Path = path
	entry.Bytes = int64(written)
	entry.CreatedAt = created
	if err := s.catalog.insert(ctx, entry); err != nil {
		_ = os.Remove(path)
		return "", &services.StorageError{Op: "catalog insert", Ref: string(ref), Err: err}
	}
	return ref, nil
}

// Read returns the transcript text for ref.
func (s *Store) Read(_ context.Context, ref Reference) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.pathFor(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &services.StorageError{Op: "read", Ref: string(ref), Err: services.ErrNotFound}
		}
		return "", &services.StorageError{Op: "read", Ref: string(ref), Err: err}
	}
	return string(data), nil
}

// Append adds text to an existing transcript on a new line.
func (s *Store) Append(ctx context.Context, ref Reference, text string) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(ref)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &services.StorageError{Op: "append", Ref: string(ref), Err: services.ErrNotFound}
		}
		return &services.StorageError{Op: "append", Ref: string(ref), Err: err}
	}
	_, writeErr := file.WriteString("\n" + text)
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return &services.StorageError{Op: "append", Ref: string(ref), Err: writeErr}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &services.StorageError{Op: "append", Ref: string(ref), Err: err}
	}
	if err := s.catalog.touch(ctx, ref, info.Size(), time.Now()); err != nil {
		return &services.StorageError{Op: "catalog update", Ref: string(ref), Err: err}
	}
	return nil
}

// Describe returns the catalog entry for ref.
func (s *Store) Describe(ctx context.Context, ref Reference) (*Entry, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	entry, err := s.catalog.get(ctx, ref)
	if err != nil {
		return nil, &services.StorageError{Op: "describe", Ref: string(ref), Err: err}
	}
	if entry == nil {
		return nil, &services.StorageError{Op: "describe", Ref: string(ref), Err: services.ErrNotFound}
	}
	return entry, nil
}

// List returns catalog entries, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	entries, err := s.catalog.list(ctx, limit)
	if err != nil {
		return nil, &services.StorageError{Op: "list", Err: err}
	}
	return entries, nil
}

// Reindex rebuilds catalog rows from the files on disk. Rows whose file has
// disappeared are dropped. It returns the number of files indexed.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, &services.StorageError{Op: "reindex", Ref: s.dir, Err: err}
	}
	present := make(map[Reference]struct{}, len(dirEntries))
	names := make([]string, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), fileExt) {
			continue
		}
		names = append(names, dirEntry.Name())
	}
	sort.Strings(names)

	indexed := 0
	for _, name := range names {
		ref := Reference(strings.TrimSuffix(name, fileExt))
		if ref.Validate() != nil {
			continue
		}
		present[ref] = struct{}{}
		existing, err := s.catalog.get(ctx, ref)
		if err != nil {
			return indexed, &services.StorageError{Op: "reindex", Ref: string(ref), Err: err}
		}
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			return indexed, &services.StorageError{Op: "reindex", Ref: string(ref), Err: err}
		}
		entry := Entry{Reference: ref, Path: filepath.Join(s.dir, name), Shape: ShapeText, Bytes: info.Size()}
		if existing != nil {
			entry.Shape = existing.Shape
			entry.Source = existing.Source
		}
		entry.CreatedAt, _ = ref.Time()
		if err := s.catalog.insert(ctx, entry); err != nil {
			return indexed, &services.StorageError{Op: "reindex", Ref: string(ref), Err: err}
		}
		indexed++
	}

	entries, err := s.catalog.list(ctx, 0)
	if err != nil {
		return indexed, &services.StorageError{Op: "reindex", Err: err}
	}
	for _, entry := range entries {
		if _, ok := present[entry.Reference]; ok {
			continue
		}
		if err := s.catalog.delete(ctx, entry.Reference); err != nil {
			return indexed, &services.StorageError{Op: "reindex", Ref: string(entry.Reference), Err: err}
		}
	}
	return indexed, nil
}

func (s *Store) pathFor(ref Reference) string {
	return filepath.Join(s.dir, string(ref)+fileExt)
}
