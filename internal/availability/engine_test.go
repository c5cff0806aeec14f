package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/extract"
)

// Monday, March 2 2026 at 09:00.
var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func tuesday(hour, minute int) time.Time {
	return time.Date(2026, 3, 3, hour, minute, 0, 0, time.UTC)
}

func starts(slots []appointments.TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Format("Mon 15:04")
	}
	return out
}

func newEngine(t *testing.T, booked ...appointments.Candidate) *Engine {
	t.Helper()
	store := appointments.NewMemoryStore()
	for _, c := range booked {
		_, err := store.Create(context.Background(), c)
		require.NoError(t, err)
	}
	return NewEngine(DefaultConfig(), store)
}

func TestSlotsTomorrowAfternoon(t *testing.T) {
	engine := newEngine(t)
	q := extract.Extract("book a call for tomorrow afternoon", now)

	slots, err := engine.Slots(context.Background(), q, 0, now)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Tue 12:00", "Tue 12:30", "Tue 13:00", "Tue 13:30", "Tue 14:00",
		"Tue 14:30", "Tue 15:00", "Tue 15:30", "Tue 16:00",
	}, starts(slots))
	for _, s := range slots {
		assert.Equal(t, time.Hour, s.Duration())
	}
}

func TestSlotsSkipBookedTime(t *testing.T) {
	booked := appointments.Candidate{Title: "Standup", Slot: appointments.TimeSlot{Start: tuesday(14, 0), End: tuesday(15, 0)}}
	engine := newEngine(t, booked)
	q := extract.DateQuery{Date: tuesday(0, 0), Band: extract.BandAfternoon}

	slots, err := engine.Slots(context.Background(), q, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tue 12:00", "Tue 12:30", "Tue 13:00", "Tue 15:00", "Tue 15:30", "Tue 16:00"}, starts(slots))
	for _, s := range slots {
		assert.False(t, s.Overlaps(booked.Slot), "slot %s overlaps a booking", s)
	}
}

func TestSlotsAlignedInsideBusinessHours(t *testing.T) {
	engine := NewEngine(DefaultConfig(), appointments.NewMemoryStore())
	q := extract.DateQuery{Date: tuesday(0, 0)}

	slots, err := engine.Slots(context.Background(), q, 45*time.Minute, now)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.Zero(t, s.Start.Minute()%30, "slot %s not aligned", s)
		assert.False(t, s.Start.Before(tuesday(9, 0)))
		assert.False(t, s.End.After(tuesday(17, 0)))
	}
	assert.Equal(t, "Tue 16:00", starts(slots)[len(slots)-1])
}

func TestSlotsExplicitRangeAndPoint(t *testing.T) {
	engine := newEngine(t)

	rng := extract.DateQuery{Date: tuesday(0, 0), Range: &extract.ClockRange{From: extract.NewClock(15, 0), To: extract.NewClock(17, 0)}}
	slots, err := engine.Slots(context.Background(), rng, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tue 15:00", "Tue 15:30", "Tue 16:00"}, starts(slots))

	at := extract.NewClock(14, 0)
	point := extract.DateQuery{Date: tuesday(0, 0), At: &at}
	slots, err = engine.Slots(context.Background(), point, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tue 14:00"}, starts(slots))
}

func TestSlotsDropPastStarts(t *testing.T) {
	engine := newEngine(t)
	late := time.Date(2026, 3, 2, 15, 10, 0, 0, time.UTC)

	slots, err := engine.Slots(context.Background(), extract.DateQuery{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}, time.Hour, late)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mon 15:30", "Mon 16:00"}, starts(slots))
}

func TestSlotsEmptyIsNotAnError(t *testing.T) {
	engine := newEngine(t)

	saturday := extract.DateQuery{Date: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)}
	slots, err := engine.Slots(context.Background(), saturday, 0, now)
	require.NoError(t, err)
	assert.Empty(t, slots)

	evening := extract.DateQuery{Date: tuesday(0, 0), Band: extract.BandEvening}
	slots, err = engine.Slots(context.Background(), evening, 0, now)
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = engine.Slots(context.Background(), extract.DateQuery{Band: extract.BandMorning}, 0, now)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsEnumerateWholeDateRange(t *testing.T) {
	engine := newEngine(t)
	q := extract.Extract("next week", now)

	slots, err := engine.Slots(context.Background(), q, time.Hour, now)
	require.NoError(t, err)
	// 09:00..16:00 every 30 minutes, Monday to Friday.
	require.Len(t, slots, 5*15)
	got := starts(slots)
	assert.Equal(t, "Mon 09:00", got[0])
	assert.Equal(t, "Fri 16:00", got[len(got)-1])
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

func TestSlotsFullDayIncludesLateAfternoon(t *testing.T) {
	engine := newEngine(t)
	slots, err := engine.Slots(context.Background(), extract.DateQuery{Date: tuesday(0, 0)}, time.Hour, now)
	require.NoError(t, err)
	require.Len(t, slots, 15)
	assert.Equal(t, "Tue 16:00", starts(slots)[14])
}

type failingLister struct{}

func (failingLister) List(context.Context, time.Time, time.Time) ([]appointments.Appointment, error) {
	return nil, appointments.ErrBackendTimeout
}

func TestSlotsPropagatesListError(t *testing.T) {
	engine := NewEngine(DefaultConfig(), failingLister{})
	_, err := engine.Slots(context.Background(), extract.DateQuery{Date: tuesday(0, 0)}, 0, now)
	assert.True(t, errors.Is(err, appointments.ErrBackendTimeout))
}
