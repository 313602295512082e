// Package ledger persists which (source, media type, id) triples have
// already been ripped or have permanently failed, so re-running a job over
// the same URLs skips completed work. Failed entries are recorded only; they
// do not stop a later run from retrying them (spec §6 "Ledger").
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/constants"
)

// Entry identifies one ledger row.
type Entry struct {
	Source    string
	MediaType string
	ID        string
}

// Ledger records and queries completed/failed entries. Contains must be
// safe to call concurrently with MarkCompleted/MarkFailed from other
// goroutines, since the orchestrator checks it from every worker.
type Ledger interface {
	Contains(ctx context.Context, e Entry) (bool, error)
	MarkCompleted(ctx context.Context, e Entry) error
	MarkFailed(ctx context.Context, e Entry, reason string) error
	Close() error
}

// Database composes a completed-downloads ledger and a failed-downloads
// ledger under one facade, mirroring the source's two-table split: a
// caller checks Completed before ripping and writes terminal failures to
// Failed, which no caller reads back.
type Database struct {
	Completed Ledger
	Failed    Ledger
}

// NewDatabase wires the two ledgers per cfg.Database; either side becomes a
// NoopLedger when its corresponding *_enabled flag is off.
func NewDatabase(cfg config.DatabaseConfig) (*Database, error) {
	completed, err := newLedger(cfg.DownloadsEnabled, cfg.DownloadsPath, "downloads")
	if err != nil {
		return nil, fmt.Errorf("failed to open downloads ledger: %w", err)
	}

	failed, err := newLedger(cfg.FailedDownloadsEnabled, cfg.FailedDownloadsPath, "failed_downloads")
	if err != nil {
		completed.Close() //nolint:errcheck // Best-effort cleanup of the already-opened ledger.
		return nil, fmt.Errorf("failed to open failed-downloads ledger: %w", err)
	}

	return &Database{Completed: completed, Failed: failed}, nil
}

// Close releases both underlying ledgers.
func (d *Database) Close() error {
	err1 := d.Completed.Close()
	err2 := d.Failed.Close()

	if err1 != nil {
		return err1
	}

	return err2
}

func newLedger(enabled bool, path, table string) (Ledger, error) {
	if !enabled {
		return &NoopLedger{}, nil
	}

	return newSQLiteLedger(path, table)
}

// SQLiteLedger is a single-table append-mostly ledger backed by
// mattn/go-sqlite3.
type SQLiteLedger struct {
	db    *sql.DB
	table string
}

func newSQLiteLedger(path, table string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultFolderPermissions); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	database.SetMaxOpenConns(1)

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		source TEXT NOT NULL,
		media_type TEXT NOT NULL,
		id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (source, media_type, id)
	)`, table)

	if _, err = database.Exec(schema); err != nil {
		database.Close() //nolint:errcheck,gosec // Best-effort close on an init failure.
		return nil, fmt.Errorf("failed to create ledger table: %w", err)
	}

	return &SQLiteLedger{db: database, table: table}, nil
}

func (l *SQLiteLedger) Contains(ctx context.Context, e Entry) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE source = ? AND media_type = ? AND id = ? LIMIT 1`, l.table)

	var exists int

	err := l.db.QueryRowContext(ctx, query, e.Source, e.MediaType, e.ID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}

	return true, nil
}

func (l *SQLiteLedger) MarkCompleted(ctx context.Context, e Entry) error {
	query := fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (source, media_type, id, reason) VALUES (?, ?, ?, '')`, l.table,
	)

	_, err := l.db.ExecContext(ctx, query, e.Source, e.MediaType, e.ID)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return nil
}

func (l *SQLiteLedger) MarkFailed(ctx context.Context, e Entry, reason string) error {
	query := fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (source, media_type, id, reason) VALUES (?, ?, ?, ?)`, l.table,
	)

	_, err := l.db.ExecContext(ctx, query, e.Source, e.MediaType, e.ID, reason)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// NoopLedger never remembers anything: every id is always eligible to be
// (re-)ripped. Used when the corresponding *_enabled config flag is off.
type NoopLedger struct{}

func (*NoopLedger) Contains(context.Context, Entry) (bool, error)   { return false, nil }
func (*NoopLedger) MarkCompleted(context.Context, Entry) error      { return nil }
func (*NoopLedger) MarkFailed(context.Context, Entry, string) error { return nil }
func (*NoopLedger) Close() error                                    { return nil }
