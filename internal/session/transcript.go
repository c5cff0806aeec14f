package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const transcriptKeyPrefix = "booking:transcript:"

// TranscriptEntry is one side of one turn.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Stage     Stage     `json:"stage,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript records the turns of a session for support and debugging.
type Transcript interface {
	Append(ctx context.Context, sessionID string, entries ...TranscriptEntry) error
	List(ctx context.Context, sessionID string, limit int64) ([]TranscriptEntry, error)
}

// MemoryTranscript keeps transcripts in process.
type MemoryTranscript struct {
	mu      sync.Mutex
	entries map[string][]TranscriptEntry
}

func NewMemoryTranscript() *MemoryTranscript {
	return &MemoryTranscript{entries: make(map[string][]TranscriptEntry)}
}

func (m *MemoryTranscript) Append(_ context.Context, sessionID string, entries ...TranscriptEntry) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[sessionID] = append(m.entries[sessionID], normalizeEntry(e))
	}
	return nil
}

func (m *MemoryTranscript) List(_ context.Context, sessionID string, limit int64) ([]TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.entries[sessionID]
	if limit > 0 && int64(len(all)) > limit {
		all = all[int64(len(all))-limit:]
	}
	return append([]TranscriptEntry{}, all...), nil
}

// RedisTranscript stores transcripts as capped Redis lists.
type RedisTranscript struct {
	redis      *redis.Client
	tracer     trace.Tracer
	ttl        time.Duration
	maxEntries int64
}

func NewRedisTranscript(client *redis.Client, ttl time.Duration) *RedisTranscript {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisTranscript{
		redis:      client,
		tracer:     otel.Tracer("booking.internal.session.transcript"),
		ttl:        ttl,
		maxEntries: 200,
	}
}

func (s *RedisTranscript) Append(ctx context.Context, sessionID string, entries ...TranscriptEntry) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if len(entries) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "session.transcript.append")
	defer span.End()

	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(normalizeEntry(e))
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("session: marshal transcript entry: %w", err)
		}
		values = append(values, data)
	}

	key := transcriptKey(sessionID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if s.maxEntries > 0 {
		pipe.LTrim(ctx, key, -s.maxEntries, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: append transcript: %w", err)
	}
	return nil
}

func (s *RedisTranscript) List(ctx context.Context, sessionID string, limit int64) ([]TranscriptEntry, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	ctx, span := s.tracer.Start(ctx, "session.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(sessionID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []TranscriptEntry{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: list transcript: %w", err)
	}

	out := make([]TranscriptEntry, 0, len(raw))
	for _, item := range raw {
		var e TranscriptEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("session: decode transcript entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func normalizeEntry(e TranscriptEntry) TranscriptEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}

func transcriptKey(sessionID string) string {
	return transcriptKeyPrefix + sessionID
}
