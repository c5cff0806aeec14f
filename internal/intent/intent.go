// Package intent maps one user message to a booking intent.
package intent

import (
	"fmt"

	"github.com/wolfman30/booking-assistant/internal/extract"
)

// Kind tags an Intent.
type Kind string

const (
	KindBook                 Kind = "book"
	KindCheckAvailability    Kind = "check_availability"
	KindCancel               Kind = "cancel"
	KindProvideSlotSelection Kind = "provide_slot_selection"
	KindProvideTitle         Kind = "provide_title"
	KindConfirmCancel        Kind = "confirm_cancel"
	KindUnknown              Kind = "unknown"
)

// Intent is the classified meaning of a message. Only the payload field that
// belongs to Kind is set, except Slot, which is also attached to Book and
// CheckAvailability while slots are on screen.
type Intent struct {
	Kind Kind `json:"kind"`
	// Rule names the classifier rule that produced the intent.
	Rule        string   `json:"rule"`
	Slot        *SlotRef `json:"slot,omitempty"`
	Title       string   `json:"title,omitempty"`
	Affirmative bool     `json:"affirmative,omitempty"`
	Text        string   `json:"text,omitempty"`
}

func (i Intent) String() string {
	switch i.Kind {
	case KindProvideSlotSelection:
		return fmt.Sprintf("%s(%s)", i.Kind, i.Slot)
	case KindProvideTitle:
		return fmt.Sprintf("%s(%q)", i.Kind, i.Title)
	case KindConfirmCancel:
		return fmt.Sprintf("%s(%t)", i.Kind, i.Affirmative)
	default:
		return string(i.Kind)
	}
}

// SlotRef points at one of the presented slots, by position or by time.
type SlotRef struct {
	// Index is 1-based; zero when the reference is only a time.
	Index int `json:"index,omitempty"`
	// Time is the start time mentioned, if any.
	Time *extract.Clock `json:"time,omitempty"`
	// Exact is false when Time was written without am/pm and may mean
	// either half of the day.
	Exact bool `json:"exact,omitempty"`
}

func (r *SlotRef) String() string {
	if r == nil {
		return "none"
	}
	switch {
	case r.Index > 0 && r.Time != nil:
		return fmt.Sprintf("#%d or %s", r.Index, r.Time)
	case r.Index > 0:
		return fmt.Sprintf("#%d", r.Index)
	case r.Time != nil:
		return r.Time.String()
	default:
		return "none"
	}
}
