package transcript

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current catalog schema version. Bump it when the schema
// changes; the catalog only indexes files on disk, so it can be deleted and
// rebuilt with `huddle transcripts reindex`.
const schemaVersion = 1

// ErrSchemaMismatch indicates the catalog schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const entryColumns = "reference, path, shape, bytes, source, created_at, updated_at"

type catalog struct {
	db *sql.DB
}

func openCatalog(path string) (*catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	c := &catalog{db: db}
	if err := c.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *catalog) close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *catalog) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return c.createSchema(ctx)
	}

	var version int
	if err := c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: catalog has version %d, expected %d (delete the catalog and run 'huddle transcripts reindex')",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (c *catalog) createSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (c *catalog) insert(ctx context.Context, entry Entry) error {
	timestamp := entry.CreatedAt.UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO transcripts (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(entry.Reference),
			entry.Path,
			string(entry.Shape),
			entry.Bytes,
			nullableString(entry.Source),
			timestamp,
			timestamp,
		)
		return err
	})
}

func (c *catalog) touch(ctx context.Context, ref Reference, size int64, at time.Time) error {
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx,
			`UPDATE transcripts SET bytes = ?, updated_at = ? WHERE reference = ?`,
			size,
			at.UTC().Format(time.RFC3339Nano),
			string(ref),
		)
		return err
	})
}

func (c *catalog) get(ctx context.Context, ref Reference) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM transcripts WHERE reference = ?`, string(ref))
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return entry, nil
}

func (c *catalog) list(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM transcripts ORDER BY reference DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (c *catalog) delete(ctx context.Context, ref Reference) error {
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, `DELETE FROM transcripts WHERE reference = ?`, string(ref))
		return err
	})
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		reference  string
		path       string
		shape      string
		size       int64
		source     sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&reference, &path, &shape, &size, &source, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	entry := &Entry{
		Reference: Reference(reference),
		Path:      path,
		Shape:     Shape(shape),
		Bytes:     size,
		Source:    source.String,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
