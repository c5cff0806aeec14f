package dialogue

import (
	"time"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/extract"
	"github.com/wolfman30/booking-assistant/internal/intent"
)

// matchSlot resolves a slot reference against the presented candidates.
// Order: index in range, exact start time (both halves of the day when no
// am/pm was given), then the single nearest start within one interval.
// A mentioned day narrows time matches to that day. Anything ambiguous is
// no match.
func matchSlot(candidates []appointments.TimeSlot, ref *intent.SlotRef, q extract.DateQuery, interval time.Duration) (appointments.TimeSlot, bool) {
	if ref == nil || len(candidates) == 0 {
		return appointments.TimeSlot{}, false
	}
	switch {
	case ref.Index == intent.LastIndex:
		return candidates[len(candidates)-1], true
	case ref.Index >= 1 && ref.Index <= len(candidates):
		return candidates[ref.Index-1], true
	}
	if ref.Time == nil {
		return appointments.TimeSlot{}, false
	}

	pool := candidates
	if q.HasDate() {
		pool = onDays(candidates, q.Days())
	}
	readings := []extract.Clock{*ref.Time}
	if !ref.Exact && ref.Time.Hour() < 12 {
		readings = append(readings, *ref.Time+extract.NewClock(12, 0))
	}

	var exact []appointments.TimeSlot
	for _, slot := range pool {
		start := extract.ClockOf(slot.Start)
		for _, want := range readings {
			if start == want {
				exact = append(exact, slot)
				break
			}
		}
	}
	if len(exact) == 1 {
		return exact[0], true
	}
	if len(exact) > 1 {
		return appointments.TimeSlot{}, false
	}

	limit := extract.Clock(interval / time.Minute)
	best := limit + 1
	var nearest []appointments.TimeSlot
	for _, slot := range pool {
		start := extract.ClockOf(slot.Start)
		for _, want := range readings {
			d := distance(start, want)
			switch {
			case d < best:
				best = d
				nearest = []appointments.TimeSlot{slot}
			case d == best:
				nearest = append(nearest, slot)
			}
		}
	}
	if best <= limit && len(nearest) == 1 {
		return nearest[0], true
	}
	return appointments.TimeSlot{}, false
}

func onDays(slots []appointments.TimeSlot, days []time.Time) []appointments.TimeSlot {
	var out []appointments.TimeSlot
	for _, slot := range slots {
		for _, d := range days {
			if dayOf(slot.Start).Equal(d) {
				out = append(out, slot)
				break
			}
		}
	}
	return out
}

func distance(a, b extract.Clock) extract.Clock {
	if a > b {
		return a - b
	}
	return b - a
}
