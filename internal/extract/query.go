// Package extract turns normalized chat text into date and time-of-day
// constraints relative to an explicit reference instant.
package extract

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day in minutes after midnight.
type Clock int

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockOf returns the wall-clock time of t.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Offset returns the clock as a duration after midnight.
func (c Clock) Offset() time.Duration {
	return time.Duration(c) * time.Minute
}

// On anchors the clock to the calendar day of day.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, day.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Kitchen renders the clock as "2:00 PM".
func (c Clock) Kitchen() string {
	return c.On(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)).Format("3:04 PM")
}

// Band is a coarse time-of-day preference.
type Band string

const (
	BandNone      Band = ""
	BandMorning   Band = "morning"
	BandAfternoon Band = "afternoon"
	BandEvening   Band = "evening"
)

// Window returns the hour range a band maps to.
func (b Band) Window() (Clock, Clock, bool) {
	switch b {
	case BandMorning:
		return NewClock(9, 0), NewClock(12, 0), true
	case BandAfternoon:
		return NewClock(12, 0), NewClock(17, 0), true
	case BandEvening:
		return NewClock(17, 0), NewClock(21, 0), true
	default:
		return 0, 0, false
	}
}

// ClockRange is an explicit time-of-day window, From inclusive, To exclusive.
type ClockRange struct {
	From Clock `json:"from"`
	To   Clock `json:"to"`
}

// DateQuery is the structured form of a date/time request.
type DateQuery struct {
	// Date is the first (or only) requested day at local midnight.
	Date time.Time `json:"date"`
	// EndDate is the last requested day of a range, inclusive. Zero for a single day.
	EndDate time.Time   `json:"end_date"`
	Band    Band        `json:"band,omitempty"`
	Range   *ClockRange `json:"range,omitempty"`
	At      *Clock      `json:"at,omitempty"`
}

// HasDate reports whether a day or day range was resolved.
func (q DateQuery) HasDate() bool {
	return !q.Date.IsZero()
}

// HasTime reports whether any time-of-day constraint is present.
func (q DateQuery) HasTime() bool {
	return q.Band != BandNone || q.Range != nil || q.At != nil
}

// IsEmpty reports whether nothing at all was extracted.
func (q DateQuery) IsEmpty() bool {
	return !q.HasDate() && !q.HasTime()
}

// Complete reports whether availability can be computed from the query.
func (q DateQuery) Complete() bool {
	return q.HasDate()
}

// Days lists every requested day in order.
func (q DateQuery) Days() []time.Time {
	if !q.HasDate() {
		return nil
	}
	if q.EndDate.IsZero() || !q.EndDate.After(q.Date) {
		return []time.Time{q.Date}
	}
	var days []time.Time
	for d := q.Date; !d.After(q.EndDate); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Window returns the time-of-day window slots must fall inside. An explicit
// point yields a zero-width window starting at that point.
func (q DateQuery) Window() (Clock, Clock, bool) {
	switch {
	case q.At != nil:
		return *q.At, *q.At, true
	case q.Range != nil:
		return q.Range.From, q.Range.To, true
	default:
		return q.Band.Window()
	}
}

// Merge overlays the fields present in newer onto q. A newer time
// constraint replaces every older one.
func (q DateQuery) Merge(newer DateQuery) DateQuery {
	out := q
	if newer.HasDate() {
		out.Date = newer.Date
		out.EndDate = newer.EndDate
	}
	if newer.HasTime() {
		out.Band = newer.Band
		out.Range = newer.Range
		out.At = newer.At
	}
	return out
}

// TimeOnly strips the date part, keeping the time-of-day constraint.
func (q DateQuery) TimeOnly() DateQuery {
	return DateQuery{Band: q.Band, Range: q.Range, At: q.At}
}

// Describe renders the query for prompts, e.g. "Tue Mar 3 in the afternoon".
func (q DateQuery) Describe() string {
	var parts []string
	if q.HasDate() {
		if days := q.Days(); len(days) > 1 {
			parts = append(parts, fmt.Sprintf("%s to %s", days[0].Format("Mon Jan 2"), days[len(days)-1].Format("Mon Jan 2")))
		} else {
			parts = append(parts, q.Date.Format("Mon Jan 2"))
		}
	}
	switch {
	case q.At != nil:
		parts = append(parts, "at "+q.At.Kitchen())
	case q.Range != nil:
		parts = append(parts, fmt.Sprintf("between %s and %s", q.Range.From.Kitchen(), q.Range.To.Kitchen()))
	case q.Band != BandNone:
		parts = append(parts, "in the "+string(q.Band))
	}
	return strings.Join(parts, " ")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
