// Package ledger keeps a local audit trail of pipeline runs in SQLite:
// one row per preprocess, ingest, or publish invocation. The ledger is an
// operator convenience and must never block or fail a run.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite run-audit database.
type Store struct {
	db *sql.DB
}

// Entry is one recorded run.
type Entry struct {
	RunID     string         `json:"run_id"`
	Kind      string         `json:"kind"` // preprocess, ingest, publish
	Status    string         `json:"status"`
	Counts    map[string]int `json:"counts"`
	CreatedAt time.Time      `json:"created_at"`
}

// Open opens (or creates) the ledger database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    status      TEXT NOT NULL,
    counts      TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, created_at);
`
	_, err := s.db.Exec(ddl)
	return err
}

// RecordRun inserts one run row. An empty run id gets a fresh uuid.
func (s *Store) RecordRun(runID, kind, status string, counts map[string]int) error {
	if runID == "" {
		runID = uuid.NewString()
	}
	if counts == nil {
		counts = map[string]int{}
	}
	encoded, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, kind, status, counts, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, kind, status, string(encoded), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns the most recent entries for a kind; empty kind means all.
func (s *Store) Runs(kind string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT run_id, kind, status, counts, created_at FROM runs`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var counts, createdAt string
		if err := rows.Scan(&e.RunID, &e.Kind, &e.Status, &counts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &e.Counts); err != nil {
			return nil, fmt.Errorf("decode counts: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Record opens the ledger at path, records one run, and closes it. Failures
// are logged and swallowed so an unavailable ledger never fails a run.
func Record(path, runID, kind, status string, counts map[string]int, log *slog.Logger) {
	if path == "" {
		return
	}
	if log == nil {
		log = slog.Default()
	}
	s, err := Open(path)
	if err != nil {
		log.Warn("ledger unavailable", "path", path, "error", err)
		return
	}
	defer s.Close()
	if err := s.RecordRun(runID, kind, status, counts); err != nil {
		log.Warn("ledger record failed", "path", path, "error", err)
	}
}
