package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps appointments in process. Create holds a single mutex
// across the overlap check and the insert.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]Appointment
	now   func() time.Time
	newID func() string
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides appointment id generation.
func WithIDGenerator(gen func() string) MemoryOption {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		byID:  make(map[string]Appointment),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) List(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	window := TimeSlot{Start: from, End: to}
	s.mu.Lock()
	out := make([]Appointment, 0, len(s.byID))
	for _, appt := range s.byID {
		if appt.Slot().Overlaps(window) {
			out = append(out, appt)
		}
	}
	s.mu.Unlock()
	sortByStart(out)
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, c Candidate) (Appointment, error) {
	if err := c.Validate(); err != nil {
		return Appointment{}, err
	}
	if err := ctx.Err(); err != nil {
		return Appointment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Slot().Overlaps(c.Slot) {
			return Appointment{}, ErrConflict
		}
	}
	appt := Appointment{
		ID:        s.newID(),
		Title:     c.Title,
		Start:     c.Slot.Start,
		End:       c.Slot.End,
		CreatedAt: s.now(),
	}
	s.byID[appt.ID] = appt
	return appt, nil
}

func (s *MemoryStore) Cancel(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func sortByStart(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Start.Equal(appts[j].Start) {
			return appts[i].ID < appts[j].ID
		}
		return appts[i].Start.Before(appts[j].Start)
	})
}
