package turns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "booking:job:"

// RedisJobStore keeps job records as JSON values that expire after a day.
type RedisJobStore struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	if client == nil {
		panic("turns: redis client cannot be nil")
	}
	return &RedisJobStore{
		redis: client,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ JobStore = (*RedisJobStore)(nil)

func (s *RedisJobStore) MarkPending(ctx context.Context, jobID, sessionID string) error {
	if jobID == "" {
		return errJobIDRequired
	}
	now := s.now()
	data, err := json.Marshal(Job{
		ID:        jobID,
		SessionID: sessionID,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("turns: failed to encode job: %w", err)
	}
	if err := s.redis.Set(ctx, jobKey(jobID), data, jobTTL).Err(); err != nil {
		return fmt.Errorf("turns: failed to persist job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) MarkCompleted(ctx context.Context, jobID, reply string) error {
	return s.update(ctx, jobID, func(job *Job) {
		job.Status = JobStatusCompleted
		job.Reply = reply
		job.Error = ""
	})
}

func (s *RedisJobStore) MarkFailed(ctx context.Context, jobID, reason string) error {
	return s.update(ctx, jobID, func(job *Job) {
		job.Status = JobStatusFailed
		job.Reply = ""
		job.Error = reason
	})
}

func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, errJobIDRequired
	}
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("turns: failed to load job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("turns: failed to decode job: %w", err)
	}
	return &job, nil
}

// update rewrites a record in place and keeps its original expiry.
func (s *RedisJobStore) update(ctx context.Context, jobID string, apply func(*Job)) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	apply(job)
	job.UpdatedAt = s.now()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("turns: failed to encode job: %w", err)
	}
	if err := s.redis.SetArgs(ctx, jobKey(jobID), data, redis.SetArgs{KeepTTL: true}).Err(); err != nil {
		return fmt.Errorf("turns: failed to update job: %w", err)
	}
	return nil
}

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}
