package intent

import (
	"regexp"
	"strconv"

	"github.com/wolfman30/booking-assistant/internal/extract"
)

var (
	optionRE      = regexp.MustCompile(`(?:\b(?:option|number|choice|slot)\s*#?\s*|#)(\d{1,2})\b`)
	ordinalRE     = regexp.MustCompile(`\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|eleventh|twelfth|last|1st|2nd|3rd|4th|5th|6th|7th|8th|9th|10th|11th|12th)\b`)
	dateContextRE = regexp.MustCompile(`\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d`)
	bareNumberRE  = regexp.MustCompile(`\b(\d{1,2})\b`)
)

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5, "sixth": 6,
	"seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10, "eleventh": 11, "twelfth": 12,
	"1st": 1, "2nd": 2, "3rd": 3, "4th": 4, "5th": 5, "6th": 6,
	"7th": 7, "8th": 8, "9th": 9, "10th": 10, "11th": 11, "12th": 12,
}

// LastIndex marks "the last one"; it resolves against the presented list.
const LastIndex = -1

// ParseSlotRef reads a reference to a presented slot from normalized text.
// Priority: explicit option number, ordinal word, time of day, bare number.
// A bare number carries both readings; the caller prefers the index when it
// is in range and falls back to the hour.
func ParseSlotRef(text string) (*SlotRef, bool) {
	if text == "" {
		return nil, false
	}
	if m := optionRE.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			return &SlotRef{Index: n}, true
		}
	}
	if !dateContextRE.MatchString(text) {
		if m := ordinalRE.FindStringSubmatch(text); m != nil {
			if m[1] == "last" {
				return &SlotRef{Index: LastIndex}, true
			}
			return &SlotRef{Index: ordinals[m[1]]}, true
		}
	}
	if c, exact, ok := extract.ParseTime(text); ok {
		return &SlotRef{Time: &c, Exact: exact}, true
	}
	if m := bareNumberRE.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			return nil, false
		}
		ref := &SlotRef{Index: n}
		if n <= 23 {
			c := extract.NewClock(n, 0)
			ref.Time = &c
			ref.Exact = n > 12
		}
		return ref, true
	}
	return nil, false
}
