package dialogue

import (
	"fmt"
	"strings"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/extract"
	"github.com/wolfman30/booking-assistant/internal/session"
)

const (
	msgAskDay          = "What day would you like? For example \"tomorrow afternoon\" or \"Friday at 10am\"."
	msgAskDayForTime   = "Which day should that be?"
	msgEmptyTitle      = "I need a name for the appointment. What should I call it?"
	msgCalendarSlow    = "The calendar is slow to respond right now. Please try that again in a moment."
	msgCalendarDown    = "I couldn't reach the calendar. Please try again shortly."
	msgTooManyRetries  = "Sorry, I couldn't match that to any of the times. Let's start over. What day would you like?"
	msgNothingToCancel = "There's nothing to cancel."
	msgCancelKept      = "Okay, I'll keep it."
	msgAlreadyGone     = "That appointment was already cancelled."
	msgDropped         = "Okay, I've dropped that booking request."
)

func helpFor(stage session.Stage) string {
	switch stage {
	case session.StageAwaitingDateClarification:
		return "Sorry, I didn't catch a day. " + msgAskDay
	case session.StagePresentingSlots:
		return "Reply with the number of the time you want, or a time like \"2pm\"."
	case session.StageAwaitingTitle:
		return msgEmptyTitle
	case session.StageAwaitingCancelConfirmation:
		return "Please answer yes to cancel or no to keep it."
	default:
		return "I can book, check availability or cancel appointments. Try \"book a call tomorrow afternoon\"."
	}
}

func askDay(q extract.DateQuery) string {
	if q.HasTime() {
		return msgAskDayForTime
	}
	return msgAskDay
}

func noAvailability(q extract.DateQuery) string {
	if desc := q.Describe(); desc != "" {
		return fmt.Sprintf("There's no availability %s. Is there another day or time that works?", desc)
	}
	return "There's no availability then. Is there another day or time that works?"
}

// listSlots numbers slots by their position among all candidates. When
// there are more than max, a spread across the days is listed.
func listSlots(slots []appointments.TimeSlot, max int) string {
	shown := shownIndexes(slots, max)
	var b strings.Builder
	for _, i := range shown {
		fmt.Fprintf(&b, "\n%d. %s", i+1, slotLabel(slots[i]))
	}
	if hidden := len(slots) - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "\n...plus %d more. You can also name a day and time, like \"%s\".", hidden, exampleTime(slots[lastHidden(shown, len(slots))]))
	}
	return b.String()
}

// shownIndexes picks up to max slot indexes, taking slots from each day in
// turn so every day gets a share. The result is in chronological order.
func shownIndexes(slots []appointments.TimeSlot, max int) []int {
	if max <= 0 || len(slots) <= max {
		all := make([]int, len(slots))
		for i := range slots {
			all[i] = i
		}
		return all
	}

	var byDay [][]int
	for i, slot := range slots {
		if i == 0 || !dayOf(slot.Start).Equal(dayOf(slots[i-1].Start)) {
			byDay = append(byDay, nil)
		}
		byDay[len(byDay)-1] = append(byDay[len(byDay)-1], i)
	}

	picked := make([]bool, len(slots))
	count := 0
	for round := 0; count < max; round++ {
		progressed := false
		for _, day := range byDay {
			if round < len(day) && count < max {
				picked[day[round]] = true
				count++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	shown := make([]int, 0, count)
	for i, ok := range picked {
		if ok {
			shown = append(shown, i)
		}
	}
	return shown
}

func lastHidden(shown []int, n int) int {
	listed := make(map[int]bool, len(shown))
	for _, i := range shown {
		listed[i] = true
	}
	for i := n - 1; i >= 0; i-- {
		if !listed[i] {
			return i
		}
	}
	return n - 1
}

func exampleTime(slot appointments.TimeSlot) string {
	return slot.Start.Format("Monday") + " at " + strings.ToLower(slot.Start.Format("3:04pm"))
}

func presentSlots(slots []appointments.TimeSlot, max int) string {
	return "Here's what's open:" + listSlots(slots, max) + "\nWhich one works?"
}

func slotTaken(slots []appointments.TimeSlot, max int) string {
	return "Sorry, that slot was just taken. Here's what's still open:" + listSlots(slots, max) + "\nWhich one works?"
}

func selectionRetry(slots []appointments.TimeSlot, max int) string {
	return fmt.Sprintf("I couldn't match that to one of the times. Pick a number from 1 to %d:%s", len(slots), listSlots(slots, max))
}

func askTitle(slot appointments.TimeSlot, previous string) string {
	msg := fmt.Sprintf("%s works. What should I call it?", slotLabel(slot))
	if previous != "" {
		msg += fmt.Sprintf(" (last time you said %q)", previous)
	}
	return msg
}

func booked(appt appointments.Appointment) string {
	return fmt.Sprintf("Booked %q for %s. Your confirmation id is %s.", appt.Title, slotLabel(appt.Slot()), appt.ID)
}

func confirmCancelPrompt(appt appointments.Appointment) string {
	return fmt.Sprintf("Cancel %q on %s? (yes/no)", appt.Title, slotLabel(appt.Slot()))
}

func cancelled(appt appointments.Appointment) string {
	if appt.Title == "" {
		return "Cancelled."
	}
	return fmt.Sprintf("Cancelled %q.", appt.Title)
}

func nothingFound(q extract.DateQuery) string {
	return fmt.Sprintf("I couldn't find an appointment %s.", strings.TrimSpace(q.Describe()))
}

func slotLabel(slot appointments.TimeSlot) string {
	return fmt.Sprintf("%s at %s", slot.Start.Format("Mon Jan 2"), slot.Start.Format("3:04 PM"))
}
