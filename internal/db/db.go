// Package db provides the SQLite store for verification run history.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tracecheck/internal/models"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:   db,
		path: dbPath,
	}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS verification_runs (
			id TEXT PRIMARY KEY,
			service_name TEXT NOT NULL,
			strategy TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			stimulus_status INTEGER NOT NULL DEFAULT 0,
			trace_count INTEGER NOT NULL DEFAULT 0,
			trace_id TEXT,
			span_count INTEGER NOT NULL DEFAULT 0,
			operation_names TEXT,
			outcome TEXT NOT NULL,
			message TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON verification_runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_outcome ON verification_runs(outcome)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// RecordRun stores the result of one verification run.
func (db *DB) RecordRun(ctx context.Context, r *models.RunResult) error {
	ops, err := json.Marshal(r.OperationNames)
	if err != nil {
		return fmt.Errorf("failed to encode operation names: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO verification_runs
			(id, service_name, strategy, started_at, stimulus_status, trace_count, trace_id,
			 span_count, operation_names, outcome, message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ServiceName, r.Strategy, r.StartedAt.UTC(), r.StimulusStatus, r.TraceCount, r.TraceID,
		r.SpanCount, string(ops), string(r.Outcome), r.Message, r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.RunResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, service_name, strategy, started_at, stimulus_status, trace_count, trace_id,
			span_count, operation_names, outcome, message, duration_ms
		FROM verification_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunResult
	for rows.Next() {
		var (
			r          models.RunResult
			traceID    sql.NullString
			ops        sql.NullString
			message    sql.NullString
			outcome    string
			durationMs int64
		)
		if err := rows.Scan(&r.ID, &r.ServiceName, &r.Strategy, &r.StartedAt, &r.StimulusStatus,
			&r.TraceCount, &traceID, &r.SpanCount, &ops, &outcome, &message, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.TraceID = traceID.String
		r.Message = message.String
		r.Outcome = models.RunOutcome(outcome)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if ops.Valid && ops.String != "" {
			if err := json.Unmarshal([]byte(ops.String), &r.OperationNames); err != nil {
				return nil, fmt.Errorf("failed to decode operation names for run %s: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
