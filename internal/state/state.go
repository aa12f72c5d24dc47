// Package state records compliance run history in a local SQLite database.
// Every suite execution is persisted so pass rates can be audited later
// instead of quoted from memory.
package state

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

// RunStatus classifies the outcome of a single compliance case.
type RunStatus string

const (
	StatusPass  RunStatus = "pass"
	StatusFail  RunStatus = "fail"
	StatusError RunStatus = "error"
)

// ComplianceRun summarizes one execution of a compliance suite.
type ComplianceRun struct {
	ID          string
	Suite       string
	Dialect     string
	StartedAt   time.Time
	CompletedAt *time.Time
	Total       int
	Passed      int
	Failed      int
	Errored     int
}

// CaseResult records the outcome of a single test case within a run.
type CaseResult struct {
	RunID      string
	Group      string
	Name       string
	Expression string
	Status     RunStatus
	Detail     string
}

// Store persists compliance runs to SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates an unopened store.
func NewStore() *Store {
	return &Store{}
}

// Open opens the SQLite database at path, creating parent directories as
// needed. Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginRun inserts a new in-progress run row and returns it.
func (s *Store) BeginRun(ctx context.Context, suite, dialect string) (*ComplianceRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &ComplianceRun{
		ID:        uuid.NewString(),
		Suite:     suite,
		Dialect:   dialect,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compliance_runs (id, suite, dialect, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Suite, run.Dialect, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the final counters and the per-case results for a run
// in a single transaction.
func (s *Store) CompleteRun(ctx context.Context, run *ComplianceRun, results []CaseResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	run.CompletedAt = &now
	_, err = tx.ExecContext(ctx,
		`UPDATE compliance_runs
		 SET completed_at = ?, total = ?, passed = ?, failed = ?, errored = ?
		 WHERE id = ?`,
		now, run.Total, run.Passed, run.Failed, run.Errored, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO case_results (run_id, group_name, case_name, expression, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare case insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, run.ID, r.Group, r.Name, r.Expression, r.Status, r.Detail); err != nil {
			return fmt.Errorf("failed to record case %s/%s: %w", r.Group, r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ComplianceRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, suite, dialect, started_at, completed_at, total, passed, failed, errored
		 FROM compliance_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []ComplianceRun
	for rows.Next() {
		var run ComplianceRun
		var completed sql.NullTime
		if err := rows.Scan(&run.ID, &run.Suite, &run.Dialect, &run.StartedAt, &completed,
			&run.Total, &run.Passed, &run.Failed, &run.Errored); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completed.Valid {
			run.CompletedAt = &completed.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Failures returns the non-passing case results for a run.
func (s *Store) Failures(ctx context.Context, runID string) ([]CaseResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, group_name, case_name, expression, status, detail
		 FROM case_results WHERE run_id = ? AND status != ?
		 ORDER BY group_name, case_name`, runID, StatusPass)
	if err != nil {
		return nil, fmt.Errorf("failed to query case results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []CaseResult
	for rows.Next() {
		var r CaseResult
		if err := rows.Scan(&r.RunID, &r.Group, &r.Name, &r.Expression, &r.Status, &r.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan case result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case results: %w", err)
	}
	return results, nil
}
