package turns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type jobPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGJobStore persists job records in the turn_jobs table.
type PGJobStore struct {
	db  jobPool
	now func() time.Time
}

// NewPGJobStore builds a Postgres-backed JobStore.
func NewPGJobStore(db *pgxpool.Pool) *PGJobStore {
	if db == nil {
		panic("turns: pgx pool cannot be nil")
	}
	return newPGJobStoreWithPool(db)
}

func newPGJobStoreWithPool(db jobPool) *PGJobStore {
	return &PGJobStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ JobStore = (*PGJobStore)(nil)

// MarkPending inserts a pending job record.
func (s *PGJobStore) MarkPending(ctx context.Context, jobID, sessionID string) error {
	if jobID == "" {
		return errJobIDRequired
	}
	now := s.now()
	if _, err := s.db.Exec(ctx, `
		INSERT INTO turn_jobs (job_id, session_id, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $4, $5)
	`, jobID, sessionID, JobStatusPending, now, now.Add(jobTTL)); err != nil {
		return fmt.Errorf("turns: failed to persist job: %w", err)
	}
	return nil
}

// MarkCompleted stores the reply of a processed turn.
func (s *PGJobStore) MarkCompleted(ctx context.Context, jobID, reply string) error {
	if jobID == "" {
		return errJobIDRequired
	}
	result, err := s.db.Exec(ctx, `
		UPDATE turn_jobs
		SET status = $2,
		    reply = $3,
		    error_message = '',
		    updated_at = $4
		WHERE job_id = $1
	`, jobID, JobStatusCompleted, reply, s.now())
	if err != nil {
		return fmt.Errorf("turns: failed to update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailed records why a turn could not be processed.
func (s *PGJobStore) MarkFailed(ctx context.Context, jobID, reason string) error {
	if jobID == "" {
		return errJobIDRequired
	}
	result, err := s.db.Exec(ctx, `
		UPDATE turn_jobs
		SET status = $2,
		    reply = '',
		    error_message = $3,
		    updated_at = $4
		WHERE job_id = $1
	`, jobID, JobStatusFailed, reason, s.now())
	if err != nil {
		return fmt.Errorf("turns: failed to update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Get loads an unexpired job by id.
func (s *PGJobStore) Get(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, errJobIDRequired
	}
	var (
		job    Job
		status string
	)
	err := s.db.QueryRow(ctx, `
		SELECT job_id, session_id, status, reply, error_message, created_at, updated_at
		FROM turn_jobs
		WHERE job_id = $1 AND expires_at > $2
	`, jobID, s.now()).Scan(&job.ID, &job.SessionID, &status, &job.Reply, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("turns: failed to load job: %w", err)
	}
	job.Status = JobStatus(status)
	return &job, nil
}
