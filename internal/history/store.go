// Package history records every dump in a local SQLite database so earlier
// runs and their name mappings can be inspected later.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/planflat/internal/flatten"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned when a run id (or id prefix) matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Status is the outcome of a recorded run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusEmpty   Status = "empty"
	StatusDryRun  Status = "dry-run"
)

// Run is one recorded dump.
type Run struct {
	ID          string
	Plan        string
	Source      string
	Destination string
	Files       int
	Bytes       int64
	Status      Status
	Error       string
	Duration    time.Duration
	StartedAt   time.Time
	// Mappings is written with the run but not loaded by Recent; use Files.
	Mappings []FileRecord
}

// FileRecord is one relative path -> flat name pair of a run.
type FileRecord struct {
	RelativePath string
	FlatName     string
}

// NewRun builds the record for a finished dump. summary may be nil when the
// run failed before producing one.
func NewRun(plan, source, destination string, startedAt time.Time, summary *flatten.Summary, runErr error) *Run {
	run := &Run{
		ID:          uuid.New().String(),
		Plan:        plan,
		Source:      source,
		Destination: destination,
		StartedAt:   startedAt,
		Duration:    time.Since(startedAt),
		Status:      StatusSuccess,
	}

	if summary != nil {
		run.Files = len(summary.Files)
		run.Bytes = summary.Bytes
		run.Duration = summary.Duration
		for _, m := range summary.Files {
			run.Mappings = append(run.Mappings, FileRecord{RelativePath: m.RelativePath, FlatName: m.FlatName})
		}
		switch {
		case summary.DryRun:
			run.Status = StatusDryRun
		case summary.Empty():
			run.Status = StatusEmpty
		}
	}

	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	return run
}

// Store manages the SQLite history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath.
// ":memory:" gives a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores run and its mappings in one transaction. An empty ID is
// filled with a new UUID.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, plan, source, destination, files, bytes, status, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Plan, run.Source, run.Destination, run.Files, run.Bytes,
		string(run.Status), run.Error, run.Duration.Milliseconds(), run.StartedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Mappings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_files (run_id, position, relative_path, flat_name) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare file insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range run.Mappings {
			if _, err := stmt.ExecContext(ctx, run.ID, i, f.RelativePath, f.FlatName); err != nil {
				return fmt.Errorf("insert file %s: %w", f.RelativePath, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty plan means all
// plans; limit <= 0 means no limit.
func (s *Store) Recent(ctx context.Context, plan string, limit int) ([]Run, error) {
	query := `SELECT id, plan, source, destination, files, bytes, status, error, duration_ms, started_at FROM runs`
	var args []interface{}
	if plan != "" {
		query += ` WHERE plan = ?`
		args = append(args, plan)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			status     string
			durationMS int64
			startedAt  int64
		)
		if err := rows.Scan(&run.ID, &run.Plan, &run.Source, &run.Destination, &run.Files, &run.Bytes,
			&status, &run.Error, &durationMS, &startedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = Status(status)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.StartedAt = time.Unix(0, startedAt).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Files returns the mappings of a run in copy order. runID may be a unique
// prefix of the full id.
func (s *Store) Files(ctx context.Context, runID string) ([]FileRecord, error) {
	id, err := s.resolveID(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT relative_path, flat_name FROM run_files WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.RelativePath, &f.FlatName); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) resolveID(ctx context.Context, prefix string) (string, error) {
	if strings.TrimSpace(prefix) == "" {
		return "", fmt.Errorf("%w: empty run id", ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("query run id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

// Prune deletes all but the keep most recent runs and reports how many
// runs were removed. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN
		(SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_files WHERE run_id NOT IN (SELECT id FROM runs)`); err != nil {
		return 0, fmt.Errorf("prune run files: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return removed, nil
}
