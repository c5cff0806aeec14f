package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutStore bounds every call to the wrapped store. A call that runs past
// its deadline, or whose context is cancelled, fails with ErrBackendTimeout.
type TimeoutStore struct {
	next    Store
	timeout time.Duration
}

func NewTimeoutStore(next Store, timeout time.Duration) *TimeoutStore {
	if next == nil {
		panic("appointments: store required")
	}
	return &TimeoutStore{next: next, timeout: timeout}
}

func (s *TimeoutStore) List(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	appts, err := s.next.List(ctx, from, to)
	return appts, translateTimeout(err)
}

func (s *TimeoutStore) Create(ctx context.Context, c Candidate) (Appointment, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	appt, err := s.next.Create(ctx, c)
	return appt, translateTimeout(err)
}

func (s *TimeoutStore) Cancel(ctx context.Context, id string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return translateTimeout(s.next.Cancel(ctx, id))
}

func (s *TimeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func translateTimeout(err error) error {
	if err == nil || errors.Is(err, ErrBackendTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	return err
}
