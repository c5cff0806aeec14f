// Package session owns per-conversation booking state and serializes turns
// for the same session.
package session

import (
	"time"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/extract"
)

// Stage is the dialogue stage a session is in.
type Stage string

const (
	StageIdle                       Stage = "idle"
	StageAwaitingDateClarification  Stage = "awaiting_date_clarification"
	StagePresentingSlots            Stage = "presenting_slots"
	StageAwaitingTitle              Stage = "awaiting_title"
	StageAwaitingCancelConfirmation Stage = "awaiting_cancel_confirmation"
)

// Stages lists every stage in declaration order.
var Stages = []Stage{
	StageIdle,
	StageAwaitingDateClarification,
	StagePresentingSlots,
	StageAwaitingTitle,
	StageAwaitingCancelConfirmation,
}

func (s Stage) String() string {
	if s == "" {
		return string(StageIdle)
	}
	return string(s)
}

// State is everything remembered about one conversation between turns.
type State struct {
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`
	// RequestedDate holds a partially specified request while the user is
	// asked to clarify, and the last complete request while slots are shown.
	RequestedDate     extract.DateQuery `json:"requested_date"`
	RequestedDuration time.Duration     `json:"requested_duration"`
	// TimePreference is the time-of-day part of the last search.
	TimePreference    extract.DateQuery       `json:"time_preference"`
	CandidateSlots    []appointments.TimeSlot `json:"candidate_slots,omitempty"`
	SelectedSlot      *appointments.TimeSlot  `json:"selected_slot,omitempty"`
	TitleBuffer       string                  `json:"title_buffer,omitempty"`
	RetryCount        int                     `json:"retry_count"`
	CancelTargetID    string                  `json:"cancel_target_id,omitempty"`
	LastAppointmentID string                  `json:"last_appointment_id,omitempty"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// New returns the initial state for a session.
func New(sessionID string) State {
	return State{SessionID: sessionID, Stage: StageIdle}
}

// Reset returns the session to Idle. The session id and the most recent
// booking survive so a later "cancel it" still has a target.
func (s *State) Reset() {
	*s = State{
		SessionID:         s.SessionID,
		Stage:             StageIdle,
		LastAppointmentID: s.LastAppointmentID,
		UpdatedAt:         s.UpdatedAt,
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	out := s
	if s.CandidateSlots != nil {
		out.CandidateSlots = append([]appointments.TimeSlot(nil), s.CandidateSlots...)
	}
	if s.SelectedSlot != nil {
		slot := *s.SelectedSlot
		out.SelectedSlot = &slot
	}
	out.RequestedDate = cloneQuery(s.RequestedDate)
	out.TimePreference = cloneQuery(s.TimePreference)
	return out
}

func cloneQuery(q extract.DateQuery) extract.DateQuery {
	if q.Range != nil {
		r := *q.Range
		q.Range = &r
	}
	if q.At != nil {
		at := *q.At
		q.At = &at
	}
	return q
}
