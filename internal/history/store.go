// Package history persists a local record of report runs so past uploads
// and their generated reports can be listed after the process exits.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/reportkit/pkg/model"

	_ "modernc.org/sqlite"
)

// schema contains the DDL for the history database.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS report_runs (
		id          TEXT PRIMARY KEY,
		tool        TEXT NOT NULL,
		file_name   TEXT NOT NULL,
		size        INTEGER NOT NULL DEFAULT 0,
		state       TEXT NOT NULL,
		file_id     TEXT NOT NULL DEFAULT '',
		report_file TEXT NOT NULL DEFAULT '',
		error       TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_report_runs_tool ON report_runs(tool)`,
	`CREATE INDEX IF NOT EXISTS idx_report_runs_created_at ON report_runs(created_at)`,
}

// Record is one persisted report run.
type Record struct {
	ID         string
	Tool       string
	FileName   string
	Size       int64
	State      model.UploadState
	FileID     string
	ReportFile string
	Error      string
	CreatedAt  time.Time
}

// Store persists report runs in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "history"),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the history table and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Append records the outcome of a report task. Tasks are recorded in their
// terminal state, so rows are never updated afterwards.
func (s *Store) Append(ctx context.Context, task *model.UploadTask) error {
	s.logger.Debug("sql", "op", "insert", "table", "report_runs", "id", task.ID)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_runs (id, tool, file_name, size, state, file_id, report_file, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Tool, task.Name, task.Size, string(task.State),
		task.FileID, task.ReportFile, task.Error,
		task.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert report run: %w", err)
	}
	return nil
}

// List returns report runs newest first, optionally filtered by tool.
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, tool string, limit int) ([]*Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "report_runs", "tool", tool)

	query := `SELECT id, tool, file_name, size, state, file_id, report_file, error, created_at
		FROM report_runs`
	var args []any
	if tool != "" {
		query += " WHERE tool = ?"
		args = append(args, tool)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list report runs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one report run by ID, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool, file_name, size, state, file_id, report_file, error, created_at
		FROM report_runs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get report run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRecord(rows)
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var state, createdAt string
	if err := rows.Scan(&rec.ID, &rec.Tool, &rec.FileName, &rec.Size, &state,
		&rec.FileID, &rec.ReportFile, &rec.Error, &createdAt); err != nil {
		return nil, fmt.Errorf("scan report run: %w", err)
	}
	rec.State = model.UploadState(state)

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = ts
	return &rec, nil
}
