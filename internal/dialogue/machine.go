// Package dialogue drives the booking conversation: one turn in, one reply
// and an updated session state out.
package dialogue

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/availability"
	"github.com/wolfman30/booking-assistant/internal/extract"
	"github.com/wolfman30/booking-assistant/internal/intent"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/internal/textnorm"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// Booking outcome labels reported in Outcome.Booking.
const (
	OutcomeBooked    = "booked"
	OutcomeConflict  = "conflict"
	OutcomeCancelled = "cancelled"
	OutcomeTimeout   = "timeout"
)

// Config bounds the machine's retries and lookups.
type Config struct {
	MaxSelectionRetries int
	// CancelLookahead is how far ahead a cancel reference is searched.
	CancelLookahead time.Duration
	// MaxListedSlots caps how many options a reply lists. Selection still
	// matches every candidate. Zero lists all of them.
	MaxListedSlots int
}

func DefaultConfig() Config {
	return Config{MaxSelectionRetries: 3, CancelLookahead: 30 * 24 * time.Hour, MaxListedSlots: 10}
}

// Outcome describes what one turn did.
type Outcome struct {
	Reply   string
	Intent  intent.Intent
	Query   extract.DateQuery
	From    session.Stage
	To      session.Stage
	Booking string
	// AppointmentID is set when the turn booked or cancelled an appointment.
	AppointmentID string
	// Err is a backend failure that was turned into a reply.
	Err error
}

// Machine applies one classified turn to a session state. It never returns
// an error: every failure becomes a reply and a well-defined state.
type Machine struct {
	classifier *intent.Classifier
	engine     *availability.Engine
	store      appointments.Store
	cfg        Config
	logger     *logging.Logger
}

func NewMachine(engine *availability.Engine, store appointments.Store, cfg Config, logger *logging.Logger) *Machine {
	if engine == nil {
		panic("dialogue: availability engine required")
	}
	if store == nil {
		panic("dialogue: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultConfig()
	if cfg.MaxSelectionRetries <= 0 {
		cfg.MaxSelectionRetries = defaults.MaxSelectionRetries
	}
	if cfg.CancelLookahead <= 0 {
		cfg.CancelLookahead = defaults.CancelLookahead
	}
	return &Machine{
		classifier: intent.NewClassifier(),
		engine:     engine,
		store:      store,
		cfg:        cfg,
		logger:     logger,
	}
}

// turn carries the per-turn inputs through the handlers.
type turn struct {
	raw        string
	normalized string
	now        time.Time
	intent     intent.Intent
	query      extract.DateQuery
}

// Step classifies raw and applies it to st.
func (m *Machine) Step(ctx context.Context, st *session.State, raw string, now time.Time) Outcome {
	if st.Stage == "" {
		st.Stage = session.StageIdle
	}
	norm := textnorm.Normalize(raw)
	t := turn{
		raw:        raw,
		normalized: norm,
		now:        now,
		intent:     m.classifier.Classify(intent.Input{Raw: raw, Normalized: norm, Stage: st.Stage, Now: now}),
		query:      extract.Extract(norm, now),
	}
	out := Outcome{Intent: t.intent, Query: t.query, From: st.Stage}
	m.dispatch(ctx, st, t, &out)
	out.To = st.Stage
	return out
}

func (m *Machine) dispatch(ctx context.Context, st *session.State, t turn, out *Outcome) {
	switch t.intent.Kind {
	case intent.KindCancel:
		m.startCancel(ctx, st, t, out)
		return
	case intent.KindUnknown:
		out.Reply = helpFor(st.Stage)
		return
	}

	switch st.Stage {
	case session.StageIdle, session.StageAwaitingDateClarification:
		if isSearch(t.intent) {
			m.search(ctx, st, t, out)
			return
		}
	case session.StagePresentingSlots:
		switch {
		case t.intent.Kind == intent.KindProvideSlotSelection && namesOtherDay(st.CandidateSlots, t.query):
			m.search(ctx, st, t, out)
			return
		case t.intent.Kind == intent.KindProvideSlotSelection:
			m.selectSlot(st, t, out)
			return
		case isSearch(t.intent) && t.query.Complete():
			m.search(ctx, st, t, out)
			return
		case isSearch(t.intent) && t.intent.Slot != nil:
			m.selectSlot(st, t, out)
			return
		case isSearch(t.intent) && t.query.HasTime():
			m.search(ctx, st, t, out)
			return
		}
	case session.StageAwaitingTitle:
		if t.intent.Kind == intent.KindProvideTitle {
			m.book(ctx, st, t, out)
			return
		}
	case session.StageAwaitingCancelConfirmation:
		if t.intent.Kind == intent.KindConfirmCancel {
			m.confirmCancel(ctx, st, t, out)
			return
		}
	}
	out.Reply = helpFor(st.Stage)
}

// namesOtherDay reports whether q mentions days none of the candidates fall on.
func namesOtherDay(candidates []appointments.TimeSlot, q extract.DateQuery) bool {
	return q.HasDate() && len(onDays(candidates, q.Days())) == 0
}

func isSearch(in intent.Intent) bool {
	return in.Kind == intent.KindBook || in.Kind == intent.KindCheckAvailability
}

// search resolves the request against the calendar. A request that is still
// missing its day is parked in RequestedDate while the user is asked for it.
func (m *Machine) search(ctx context.Context, st *session.State, t turn, out *Outcome) {
	q := t.query
	if st.Stage != session.StageIdle && !q.Complete() {
		q = st.RequestedDate.Merge(q)
	}
	duration := st.RequestedDuration
	if st.Stage == session.StageIdle {
		duration = 0
	}
	if d, ok := extract.ExtractDuration(t.normalized); ok {
		duration = d
	}

	if !q.Complete() {
		st.Stage = session.StageAwaitingDateClarification
		st.RequestedDate = q
		st.RequestedDuration = duration
		st.CandidateSlots = nil
		st.SelectedSlot = nil
		st.RetryCount = 0
		out.Reply = askDay(q)
		return
	}

	slots, err := m.engine.Slots(ctx, q, duration, t.now)
	if err != nil {
		m.backendFailure(out, err, "availability lookup failed")
		return
	}

	st.RequestedDate = q
	st.RequestedDuration = duration
	st.TimePreference = q.TimeOnly()
	st.SelectedSlot = nil
	st.RetryCount = 0
	if len(slots) == 0 {
		st.Stage = session.StageAwaitingDateClarification
		st.CandidateSlots = nil
		out.Reply = noAvailability(q)
		return
	}
	st.Stage = session.StagePresentingSlots
	st.CandidateSlots = slots
	out.Reply = presentSlots(slots, m.cfg.MaxListedSlots)
}

func (m *Machine) selectSlot(st *session.State, t turn, out *Outcome) {
	slot, ok := matchSlot(st.CandidateSlots, t.intent.Slot, t.query, m.engine.Config().Interval)
	if ok {
		st.SelectedSlot = &slot
		st.Stage = session.StageAwaitingTitle
		st.RetryCount = 0
		out.Reply = askTitle(slot, st.TitleBuffer)
		return
	}

	st.RetryCount++
	if st.RetryCount >= m.cfg.MaxSelectionRetries {
		st.Reset()
		out.Reply = msgTooManyRetries
		return
	}
	out.Reply = selectionRetry(st.CandidateSlots, m.cfg.MaxListedSlots)
}

func (m *Machine) book(ctx context.Context, st *session.State, t turn, out *Outcome) {
	title := t.intent.Title
	if title == "" {
		out.Reply = msgEmptyTitle
		return
	}
	if st.SelectedSlot == nil {
		st.Reset()
		out.Reply = msgAskDay
		return
	}

	appt, err := m.store.Create(ctx, appointments.Candidate{Title: title, Slot: *st.SelectedSlot})
	switch {
	case err == nil:
		st.LastAppointmentID = appt.ID
		st.Reset()
		out.Booking = OutcomeBooked
		out.AppointmentID = appt.ID
		out.Reply = booked(appt)
	case errors.Is(err, appointments.ErrConflict):
		out.Booking = OutcomeConflict
		m.refreshAfterConflict(ctx, st, t, title, out)
	case errors.Is(err, appointments.ErrInvalidCandidate):
		out.Reply = msgEmptyTitle
	default:
		m.backendFailure(out, err, "create appointment failed")
	}
}

// refreshAfterConflict re-runs the search for the day of the slot that was
// taken, keeping the user's time-of-day preference unless it pinned the
// exact time that is now gone.
func (m *Machine) refreshAfterConflict(ctx context.Context, st *session.State, t turn, title string, out *Outcome) {
	pref := st.TimePreference
	if pref.At != nil {
		pref = extract.DateQuery{}
	}
	taken := *st.SelectedSlot
	q := extract.DateQuery{Date: dayOf(taken.Start)}.Merge(pref)

	st.TitleBuffer = title
	st.SelectedSlot = nil
	st.RetryCount = 0
	st.RequestedDate = q

	slots, err := m.engine.Slots(ctx, q, taken.Duration(), t.now)
	if err != nil || len(slots) == 0 {
		if err != nil {
			m.logger.Warn("refresh after conflict failed", "session_id", st.SessionID, "error", err)
			out.Err = err
		}
		st.Stage = session.StageAwaitingDateClarification
		st.CandidateSlots = nil
		out.Reply = "Sorry, that slot was just taken. " + noAvailability(q)
		return
	}
	st.Stage = session.StagePresentingSlots
	st.CandidateSlots = slots
	out.Reply = slotTaken(slots, m.cfg.MaxListedSlots)
}

func (m *Machine) startCancel(ctx context.Context, st *session.State, t turn, out *Outcome) {
	target, found, err := m.findCancelTarget(ctx, st, t)
	if err != nil {
		m.backendFailure(out, err, "cancel lookup failed")
		return
	}
	if found {
		st.Reset()
		st.Stage = session.StageAwaitingCancelConfirmation
		st.CancelTargetID = target.ID
		out.Reply = confirmCancelPrompt(target)
		return
	}

	inProgress := st.Stage != session.StageIdle
	st.Reset()
	switch {
	case !t.query.IsEmpty():
		out.Reply = nothingFound(t.query)
	case inProgress:
		out.Reply = msgDropped
	default:
		out.Reply = msgNothingToCancel
	}
}

// findCancelTarget picks the appointment a cancel request refers to: the
// earliest upcoming appointment matching the mentioned day or time, or the
// session's most recent booking when nothing is mentioned.
func (m *Machine) findCancelTarget(ctx context.Context, st *session.State, t turn) (appointments.Appointment, bool, error) {
	from, to := t.now, t.now.Add(m.cfg.CancelLookahead)
	q := t.query
	if q.IsEmpty() && st.LastAppointmentID == "" {
		return appointments.Appointment{}, false, nil
	}
	if q.HasDate() {
		days := q.Days()
		if start := days[0]; start.After(from) {
			from = start
		}
		if end := days[len(days)-1].AddDate(0, 0, 1); end.Before(to) {
			to = end
		}
		if !to.After(from) {
			return appointments.Appointment{}, false, nil
		}
	}

	upcoming, err := m.store.List(ctx, from, to)
	if err != nil {
		return appointments.Appointment{}, false, err
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Start.Before(upcoming[j].Start) })

	if q.IsEmpty() {
		for _, appt := range upcoming {
			if appt.ID == st.LastAppointmentID {
				return appt, true, nil
			}
		}
		return appointments.Appointment{}, false, nil
	}

	winFrom, winTo, hasWindow := q.Window()
	for _, appt := range upcoming {
		if !hasWindow {
			return appt, true, nil
		}
		start := extract.ClockOf(appt.Start)
		if q.At != nil {
			if start == *q.At {
				return appt, true, nil
			}
			continue
		}
		if start >= winFrom && start < winTo {
			return appt, true, nil
		}
	}
	return appointments.Appointment{}, false, nil
}

func (m *Machine) confirmCancel(ctx context.Context, st *session.State, t turn, out *Outcome) {
	targetID := st.CancelTargetID
	if !t.intent.Affirmative || targetID == "" {
		st.Reset()
		out.Reply = msgCancelKept
		return
	}

	var target appointments.Appointment
	if upcoming, err := m.store.List(ctx, t.now, t.now.Add(m.cfg.CancelLookahead)); err == nil {
		for _, appt := range upcoming {
			if appt.ID == targetID {
				target = appt
				break
			}
		}
	}

	err := m.store.Cancel(ctx, targetID)
	switch {
	case err == nil:
		m.forget(st, targetID)
		st.Reset()
		out.Booking = OutcomeCancelled
		out.AppointmentID = targetID
		out.Reply = cancelled(target)
	case errors.Is(err, appointments.ErrNotFound):
		m.forget(st, targetID)
		st.Reset()
		out.Reply = msgAlreadyGone
	default:
		m.backendFailure(out, err, "cancel appointment failed")
	}
}

func (m *Machine) forget(st *session.State, id string) {
	if st.LastAppointmentID == id {
		st.LastAppointmentID = ""
	}
}

// backendFailure leaves the state untouched and tells the user to retry.
func (m *Machine) backendFailure(out *Outcome, err error, msg string) {
	out.Err = err
	if errors.Is(err, appointments.ErrBackendTimeout) {
		out.Booking = OutcomeTimeout
		out.Reply = msgCalendarSlow
		m.logger.Warn(msg, "error", err)
		return
	}
	out.Reply = msgCalendarDown
	m.logger.Error(msg, "error", err)
}

func dayOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
