package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/booking-assistant/internal/appointments"
)

func daySlots(days, perDay int) []appointments.TimeSlot {
	var slots []appointments.TimeSlot
	for d := 0; d < days; d++ {
		for h := 0; h < perDay; h++ {
			slots = append(slots, hourSlot(tuesday(9+h, 0).AddDate(0, 0, d)))
		}
	}
	return slots
}

func TestShownIndexesSpreadsAcrossDays(t *testing.T) {
	slots := daySlots(3, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 10, 11, 12}, shownIndexes(slots, 10))
	assert.Len(t, shownIndexes(slots, 0), 15)
	assert.Len(t, shownIndexes(slots[:4], 10), 4)
}

func TestListSlotsKeepsFullListNumbers(t *testing.T) {
	slots := daySlots(2, 3)
	got := listSlots(slots, 4)

	assert.Contains(t, got, "\n1. Tue Mar 3 at 9:00 AM")
	assert.Contains(t, got, "\n4. Wed Mar 4 at 9:00 AM")
	assert.Contains(t, got, "\n5. Wed Mar 4 at 10:00 AM")
	assert.NotContains(t, got, "\n3. ")
	assert.Contains(t, got, `...plus 2 more. You can also name a day and time, like "Wednesday at 11:00am".`)
}
