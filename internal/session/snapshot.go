package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SnapshotStore persists session state between turns.
type SnapshotStore interface {
	// Load returns the stored state and whether one existed.
	Load(ctx context.Context, sessionID string) (State, bool, error)
	Save(ctx context.Context, state State) error
}

// MemorySnapshots keeps snapshots in process.
type MemorySnapshots struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{states: make(map[string]State)}
}

func (m *MemorySnapshots) Load(_ context.Context, sessionID string) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[sessionID]
	if !ok {
		return State{}, false, nil
	}
	return state.Clone(), true, nil
}

func (m *MemorySnapshots) Save(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.SessionID] = state.Clone()
	return nil
}

const snapshotKeyPrefix = "booking:session:"

// RedisSnapshots stores JSON snapshots with a sliding TTL.
type RedisSnapshots struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisSnapshots{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("booking.internal.session.snapshots"),
	}
}

func (s *RedisSnapshots) Load(ctx context.Context, sessionID string) (State, bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.load_snapshot")
	defer span.End()

	data, err := s.redis.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, false, nil
		}
		span.RecordError(err)
		return State{}, false, fmt.Errorf("session: load snapshot: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return State{}, false, fmt.Errorf("session: decode snapshot: %w", err)
	}
	return state, true, nil
}

func (s *RedisSnapshots) Save(ctx context.Context, state State) error {
	ctx, span := s.tracer.Start(ctx, "session.save_snapshot")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, snapshotKey(state.SessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: save snapshot: %w", err)
	}
	return nil
}

func snapshotKey(sessionID string) string {
	return snapshotKeyPrefix + sessionID
}
