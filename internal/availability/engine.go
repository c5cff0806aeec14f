// Package availability computes bookable slots for a date query.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/extract"
)

// Config describes business hours and slot granularity.
type Config struct {
	// Open and Close are offsets from local midnight.
	Open            time.Duration
	Close           time.Duration
	Interval        time.Duration
	DefaultDuration time.Duration
	WorkingDays     []time.Weekday
}

// DefaultConfig is 09:00-17:00 Monday to Friday in 30 minute steps.
func DefaultConfig() Config {
	return Config{
		Open:            9 * time.Hour,
		Close:           17 * time.Hour,
		Interval:        30 * time.Minute,
		DefaultDuration: time.Hour,
		WorkingDays:     []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}
}

// Lister is the read side of the calendar backend.
type Lister interface {
	List(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error)
}

// Engine enumerates interval-aligned slots inside business hours that do not
// overlap any stored appointment.
type Engine struct {
	cfg    Config
	lister Lister
}

func NewEngine(cfg Config, lister Lister) *Engine {
	if lister == nil {
		panic("availability: appointment lister required")
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaults.DefaultDuration
	}
	if cfg.Close <= cfg.Open {
		cfg.Open, cfg.Close = defaults.Open, defaults.Close
	}
	if len(cfg.WorkingDays) == 0 {
		cfg.WorkingDays = defaults.WorkingDays
	}
	return &Engine{cfg: cfg, lister: lister}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Slots returns the free slots for q in chronological order. Slots that
// start before now are never offered. An empty result is not an error.
func (e *Engine) Slots(ctx context.Context, q extract.DateQuery, duration time.Duration, now time.Time) ([]appointments.TimeSlot, error) {
	if !q.Complete() {
		return nil, nil
	}
	if duration <= 0 {
		duration = e.cfg.DefaultDuration
	}
	days := e.workingDays(q.Days())
	if len(days) == 0 {
		return nil, nil
	}

	open, closing := clockOf(e.cfg.Open), clockOf(e.cfg.Close)
	from := open.On(days[0])
	to := closing.On(days[len(days)-1])
	booked, err := e.lister.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability: list appointments: %w", err)
	}

	winFrom, winTo, hasWindow := q.Window()
	pointOnly := q.At != nil
	step := clockOf(e.cfg.Interval)
	length := clockOf(duration)

	var out []appointments.TimeSlot
	for _, day := range days {
		for start := open; start+length <= closing; start += step {
			if hasWindow {
				if pointOnly && start != winFrom {
					continue
				}
				if !pointOnly && (start < winFrom || start+length > winTo) {
					continue
				}
			}
			slot := appointments.TimeSlot{Start: start.On(day), End: start.On(day).Add(duration)}
			if slot.Start.Before(now) || overlapsAny(slot, booked) {
				continue
			}
			out = append(out, slot)
		}
	}
	return out, nil
}

func (e *Engine) workingDays(days []time.Time) []time.Time {
	out := days[:0:0]
	for _, d := range days {
		for _, wd := range e.cfg.WorkingDays {
			if d.Weekday() == wd {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func overlapsAny(slot appointments.TimeSlot, booked []appointments.Appointment) bool {
	for _, appt := range booked {
		if appt.Slot().Overlaps(slot) {
			return true
		}
	}
	return false
}

func clockOf(d time.Duration) extract.Clock {
	return extract.Clock(d / time.Minute)
}
