package turns

import (
	"context"
	"errors"
	"sync"
	"time"
)

// jobTTL bounds how long a job record stays readable.
const jobTTL = 24 * time.Hour

// JobStatus is the lifecycle of one queued turn.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ErrJobNotFound indicates the requested job id does not exist.
var ErrJobNotFound = errors.New("turns: job not found")

// Job is the recorded outcome of a queued turn.
type Job struct {
	ID        string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Status    JobStatus `json:"status"`
	Reply     string    `json:"reply,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStore records queued turns so callers can poll for the reply.
type JobStore interface {
	MarkPending(ctx context.Context, jobID, sessionID string) error
	MarkCompleted(ctx context.Context, jobID, reply string) error
	MarkFailed(ctx context.Context, jobID, reason string) error
	Get(ctx context.Context, jobID string) (*Job, error)
}

var errJobIDRequired = errors.New("turns: job id required")

// MemoryJobStore keeps job records in process. Records older than the TTL
// are dropped when new jobs are added.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
	now  func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryJobStore) MarkPending(_ context.Context, jobID, sessionID string) error {
	if jobID == "" {
		return errJobIDRequired
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > jobTTL {
			delete(s.jobs, id)
		}
	}
	s.jobs[jobID] = Job{
		ID:        jobID,
		SessionID: sessionID,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MemoryJobStore) MarkCompleted(_ context.Context, jobID, reply string) error {
	return s.update(jobID, func(job *Job) {
		job.Status = JobStatusCompleted
		job.Reply = reply
		job.Error = ""
	})
}

func (s *MemoryJobStore) MarkFailed(_ context.Context, jobID, reason string) error {
	return s.update(jobID, func(job *Job) {
		job.Status = JobStatusFailed
		job.Reply = ""
		job.Error = reason
	})
}

func (s *MemoryJobStore) Get(_ context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, errJobIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

func (s *MemoryJobStore) update(jobID string, apply func(*Job)) error {
	if jobID == "" {
		return errJobIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	apply(&job)
	job.UpdatedAt = s.now()
	s.jobs[jobID] = job
	return nil
}
