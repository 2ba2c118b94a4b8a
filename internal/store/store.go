// Package store persists run history and async job state in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"triage/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	model       TEXT NOT NULL,
	case_count  INTEGER NOT NULL,
	error_count INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	state      TEXT NOT NULL,
	case_count INTEGER NOT NULL,
	results    TEXT,
	error      TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at path. Use
// ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at '%s': %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordRun inserts one pipeline execution.
func (s *Store) RecordRun(ctx context.Context, run *models.CategorizationRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, model, case_count, error_count, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Model, run.CaseCount, run.ErrorCount, run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*models.CategorizationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, case_count, error_count, duration_ms, created_at FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.CategorizationRun
	for rows.Next() {
		var run models.CategorizationRun
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.Model, &run.CaseCount, &run.ErrorCount, &durationMS, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// CreateJob inserts a queued job.
func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, model, state, case_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.Model, string(job.State), job.CaseCount, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}
	return nil
}

// SetJobState moves a job through its lifecycle.
func (s *Store) SetJobState(ctx context.Context, id string, state models.JobState, jobErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(state), jobErr, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// SetJobResults stores the completed result list and marks the job
// done.
func (s *Store) SetJobResults(ctx context.Context, id string, results []models.PredictionResult) error {
	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode job results: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, results = ?, updated_at = ? WHERE id = ?`,
		string(models.JobStateDone), string(encoded), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to store results for job %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// GetJob fetches one job, including decoded results when present.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, model, state, case_count, results, error, created_at, updated_at FROM jobs WHERE id = ?`, id)

	var job models.Job
	var state string
	var results, jobErr sql.NullString
	err := row.Scan(&job.ID, &job.Model, &state, &job.CaseCount, &results, &jobErr, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job %s: %w", id, err)
	}

	job.State = models.JobState(state)
	job.Error = jobErr.String
	if results.Valid && results.String != "" {
		if err := json.Unmarshal([]byte(results.String), &job.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results for job %s: %w", id, err)
		}
	}
	return &job, nil
}
