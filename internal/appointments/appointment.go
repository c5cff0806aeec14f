// Package appointments stores booked time ranges and guards the rule that
// no two of them overlap.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrConflict is returned when a candidate overlaps a stored appointment.
	ErrConflict = errors.New("appointments: slot conflicts with an existing appointment")
	// ErrNotFound is returned when no appointment has the requested id.
	ErrNotFound = errors.New("appointments: appointment not found")
	// ErrBackendTimeout is returned when the calendar backend did not answer in time.
	ErrBackendTimeout = errors.New("appointments: calendar backend timed out")
	// ErrInvalidCandidate is returned for empty titles or non-positive ranges.
	ErrInvalidCandidate = errors.New("appointments: invalid candidate")
)

// TimeSlot is a half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Overlaps reports whether the two half-open intervals share any instant.
// Back-to-back slots do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Start.Format("Mon Jan 2"), s.Start.Format("3:04 PM"), s.End.Format("3:04 PM"))
}

// Appointment is a booked slot.
type Appointment struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	CreatedAt time.Time `json:"created_at"`
}

// Slot returns the interval the appointment occupies.
func (a Appointment) Slot() TimeSlot {
	return TimeSlot{Start: a.Start, End: a.End}
}

// Candidate is a booking request that has not been stored yet.
type Candidate struct {
	Title string
	Slot  TimeSlot
}

// Validate checks the candidate before any backend is touched.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidCandidate)
	}
	if !c.Slot.End.After(c.Slot.Start) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidCandidate)
	}
	return nil
}

// Store is the calendar backend the booking flow depends on.
type Store interface {
	// List returns appointments intersecting [from, to), ordered by start.
	List(ctx context.Context, from, to time.Time) ([]Appointment, error)
	// Create atomically checks for overlap and inserts the candidate.
	Create(ctx context.Context, c Candidate) (Appointment, error)
	// Cancel removes the appointment with the given id.
	Cancel(ctx context.Context, id string) error
}
