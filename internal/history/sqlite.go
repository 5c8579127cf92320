// Package history persists a record of every build run in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
)

// Run is one recorded build run.
type Run struct {
	ID       int64
	RunID    string
	Trigger  string
	Outcome  string
	Start    time.Time
	Duration time.Duration
	Stages   map[string]string
	Files    int
	Errors   []string
}

// SQLiteStore records runs in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the history database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		trigger_name TEXT NOT NULL,
		outcome TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		stages TEXT NOT NULL,
		files INTEGER NOT NULL,
		errors TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a finished report.
func (s *SQLiteStore) Record(ctx context.Context, report *models.BuildReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stages := make(map[string]string, len(report.StageResults))
	for name, res := range report.StageResults {
		stages[string(name)] = string(res)
	}
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("marshal stages: %w", err)
	}

	var errorsJSON []byte
	if len(report.Errors) > 0 {
		msgs := make([]string, 0, len(report.Errors))
		for _, e := range report.Errors {
			msgs = append(msgs, e.Error())
		}
		if errorsJSON, err = json.Marshal(msgs); err != nil {
			return fmt.Errorf("marshal errors: %w", err)
		}
	}

	files := 0
	for _, n := range report.Files {
		files += n
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, trigger_name, outcome, started_at, duration_ms, stages, files, errors) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		report.RunID, report.Trigger, string(report.Outcome), report.Start.UnixMilli(),
		report.Duration().Milliseconds(), string(stagesJSON), files, errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, trigger_name, outcome, started_at, duration_ms, stages, files, errors FROM runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedMS  int64
			durationMS int64
			stagesJSON string
			errorsJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Trigger, &r.Outcome, &startedMS, &durationMS, &stagesJSON, &r.Files, &errorsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Start = time.UnixMilli(startedMS)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(stagesJSON), &r.Stages); err != nil {
			return nil, fmt.Errorf("unmarshal stages: %w", err)
		}
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &r.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal errors: %w", err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
