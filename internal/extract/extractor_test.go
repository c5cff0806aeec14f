package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday, March 2 2026 at 09:00.
var monday = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

func clock(h, m int) *Clock {
	c := NewClock(h, m)
	return &c
}

func TestExtractDates(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		date    time.Time
		endDate time.Time
	}{
		{name: "tomorrow", text: "book a call for tomorrow afternoon", date: day(3, 3)},
		{name: "today", text: "anything today", date: day(3, 2)},
		{name: "day after tomorrow", text: "day after tomorrow please", date: day(3, 4)},
		{name: "bare weekday skips today", text: "monday", date: day(3, 9)},
		{name: "next weekday skips today", text: "next monday", date: day(3, 9)},
		{name: "this weekday includes today", text: "this monday", date: day(3, 2)},
		{name: "later weekday", text: "friday", date: day(3, 6)},
		{name: "abbreviated weekday", text: "thurs morning", date: day(3, 5)},
		{name: "month first", text: "3/4", date: day(3, 4)},
		{name: "day first when month invalid", text: "13/4", date: day(4, 13)},
		{name: "past date rolls forward", text: "1/15", date: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "explicit year", text: "3/4/2027", date: time.Date(2027, 3, 4, 0, 0, 0, 0, time.UTC)},
		{name: "month name", text: "march 10th", date: day(3, 10)},
		{name: "day of month", text: "the 12th of march", date: day(3, 12)},
		{name: "next week", text: "sometime next week", date: day(3, 9), endDate: day(3, 15)},
		{name: "this week", text: "this week", date: day(3, 2), endDate: day(3, 8)},
		{name: "tonight", text: "tonight", date: day(3, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Extract(tt.text, monday)
			require.True(t, q.HasDate(), "expected a date for %q", tt.text)
			assert.True(t, tt.date.Equal(q.Date), "date: want %s got %s", tt.date, q.Date)
			assert.True(t, tt.endDate.Equal(q.EndDate), "end date: want %s got %s", tt.endDate, q.EndDate)
		})
	}
}

func TestExtractInvalidDate(t *testing.T) {
	q := Extract("2/30", monday)
	assert.False(t, q.HasDate())
}

func TestExtractTimes(t *testing.T) {
	tests := []struct {
		name string
		text string
		band Band
		rng  *ClockRange
		at   *Clock
	}{
		{name: "afternoon band", text: "tomorrow afternoon", band: BandAfternoon},
		{name: "morning band", text: "friday morning", band: BandMorning},
		{name: "evening band", text: "tonight", band: BandEvening},
		{name: "bare range reads afternoon", text: "3-5", rng: &ClockRange{From: NewClock(15, 0), To: NewClock(17, 0)}},
		{name: "range from noon", text: "12-2", rng: &ClockRange{From: NewClock(12, 0), To: NewClock(14, 0)}},
		{name: "range across noon", text: "10-2", rng: &ClockRange{From: NewClock(10, 0), To: NewClock(14, 0)}},
		{name: "meridiem carried to start", text: "2-4pm", rng: &ClockRange{From: NewClock(14, 0), To: NewClock(16, 0)}},
		{name: "meridiem on start only", text: "between 9am and 11", rng: &ClockRange{From: NewClock(9, 0), To: NewClock(11, 0)}},
		{name: "word range", text: "from 1 to 3", rng: &ClockRange{From: NewClock(13, 0), To: NewClock(15, 0)}},
		{name: "pm point", text: "2 pm", at: clock(14, 0)},
		{name: "attached meridiem", text: "10am", at: clock(10, 0)},
		{name: "short meridiem", text: "at 3p", at: clock(15, 0)},
		{name: "24 hour clock", text: "14:30", at: clock(14, 30)},
		{name: "bare clock afternoon", text: "2:30", at: clock(14, 30)},
		{name: "at small hour", text: "at 3", at: clock(15, 0)},
		{name: "at morning hour", text: "at 9", at: clock(9, 0)},
		{name: "noon", text: "noon tomorrow", at: clock(12, 0)},
		{name: "point suppresses band", text: "tomorrow afternoon at 3", at: clock(15, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Extract(tt.text, monday)
			assert.Equal(t, tt.band, q.Band)
			assert.Equal(t, tt.rng, q.Range)
			assert.Equal(t, tt.at, q.At)
		})
	}
}

func TestExtractDateDigitsNotReadAsTime(t *testing.T) {
	q := Extract("3/4 at 2pm", monday)
	assert.True(t, day(3, 4).Equal(q.Date))
	assert.Nil(t, q.Range)
	assert.Equal(t, clock(14, 0), q.At)
}

func TestExtractDurationNotReadAsTime(t *testing.T) {
	q := Extract("tomorrow for 30 minutes at 2", monday)
	assert.True(t, day(3, 3).Equal(q.Date))
	assert.Equal(t, clock(14, 0), q.At)
}

func TestExtractNothing(t *testing.T) {
	for _, text := range []string{"", "hello there", "what can you do"} {
		q := Extract(text, monday)
		assert.True(t, q.IsEmpty(), "expected empty query for %q", text)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	first := Extract("next friday between 1 and 3", monday)
	second := Extract("next friday between 1 and 3", monday)
	assert.Equal(t, first, second)
}

func TestParseTime(t *testing.T) {
	c, exact, ok := ParseTime("the 2 pm one")
	require.True(t, ok)
	assert.True(t, exact)
	assert.Equal(t, NewClock(14, 0), c)

	c, exact, ok = ParseTime("at 2")
	require.True(t, ok)
	assert.False(t, exact)
	assert.Equal(t, NewClock(2, 0), c)

	_, _, ok = ParseTime("the second one")
	assert.False(t, ok)
}

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
		ok   bool
	}{
		{text: "a 30 minute call", want: 30 * time.Minute, ok: true},
		{text: "for 2 hours", want: 2 * time.Hour, ok: true},
		{text: "half an hour", want: 30 * time.Minute, ok: true},
		{text: "an hour and a half", want: 90 * time.Minute, ok: true},
		{text: "1 and a half hours", want: 90 * time.Minute, ok: true},
		{text: "an hour", want: time.Hour, ok: true},
		{text: "tomorrow at 3", ok: false},
	}
	for _, tt := range tests {
		got, ok := ExtractDuration(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}
