// Package storage journals runs and per-candidate outcomes in SQLite. The
// journal is an audit trail only; run quotas are never restored from it.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is an open journal database
type Store struct {
	db *sql.DB
}

// Run is one start-to-stop cycle of the controller
type Run struct {
	ID         string
	StartedAt  time.Time
	EndedAt    *time.Time
	Premium    bool
	TestMode   bool
	Limit      int
	StopReason string
	Sent       int
	Canceled   int
}

// Invitation is the recorded outcome of one candidate
type Invitation struct {
	ID         int64
	RunID      string
	ProfileURL string
	Name       string
	Outcome    string
	WithNote   bool
	At         time.Time
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc's driver serializes writers per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		premium BOOLEAN NOT NULL DEFAULT FALSE,
		test_mode BOOLEAN NOT NULL DEFAULT FALSE,
		connection_limit INTEGER NOT NULL,
		stop_reason TEXT,
		sent INTEGER NOT NULL DEFAULT 0,
		canceled INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS invitations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		profile_url TEXT,
		name TEXT,
		outcome TEXT NOT NULL,
		with_note BOOLEAN NOT NULL DEFAULT FALSE,
		at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invitations_run ON invitations(run_id);
	CREATE INDEX IF NOT EXISTS idx_invitations_at ON invitations(at);
	CREATE INDEX IF NOT EXISTS idx_invitations_profile ON invitations(profile_url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run row and returns its id
func (s *Store) BeginRun(ctx context.Context, premium, testMode bool, limit int) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO runs (id, started_at, premium, test_mode, connection_limit)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, id, time.Now().UTC(), premium, testMode, limit); err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// EndRun stores the final counters and stop reason of a run
func (s *Store) EndRun(ctx context.Context, id, stopReason string, sent, canceled int) error {
	query := `
		UPDATE runs
		SET ended_at = ?, stop_reason = ?, sent = ?, canceled = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), stopReason, sent, canceled, id)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no run found with id: %s", id)
	}
	return nil
}

// RecordOutcome appends a candidate outcome to the journal
func (s *Store) RecordOutcome(ctx context.Context, inv Invitation) error {
	if inv.At.IsZero() {
		inv.At = time.Now()
	}
	query := `
		INSERT INTO invitations (run_id, profile_url, name, outcome, with_note, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, inv.RunID, inv.ProfileURL, inv.Name, inv.Outcome, inv.WithNote, inv.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// RecentInvitations returns the newest outcomes first
func (s *Store) RecentInvitations(ctx context.Context, limit int) ([]Invitation, error) {
	query := `
		SELECT id, run_id, COALESCE(profile_url, ''), COALESCE(name, ''), outcome, with_note, at
		FROM invitations
		ORDER BY at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.RunID, &inv.ProfileURL, &inv.Name, &inv.Outcome, &inv.WithNote, &inv.At); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Runs returns the newest runs first
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, ended_at, premium, test_mode, connection_limit,
			COALESCE(stop_reason, ''), sent, canceled
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var endedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &endedAt, &r.Premium, &r.TestMode, &r.Limit,
			&r.StopReason, &r.Sent, &r.Canceled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if endedAt.Valid {
			r.EndedAt = &endedAt.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SentSince counts invitations sent at or after since
func (s *Store) SentSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM invitations WHERE outcome = 'sent' AND at >= ?"
	if err := s.db.QueryRowContext(ctx, query, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sent invitations: %w", err)
	}
	return count, nil
}

// GetStats returns journal totals keyed by name
func (s *Store) GetStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var totalRuns int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&totalRuns); err != nil {
		return nil, err
	}
	stats["total_runs"] = totalRuns

	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM invitations GROUP BY outcome")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		stats[outcome] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats["total_candidates"] = total

	sentWeek, err := s.SentSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	stats["sent_last_7_days"] = sentWeek

	return stats, nil
}
