package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdayByName = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

const (
	weekdayPattern = `sunday|sun|monday|mon|tuesday|tues|tue|wednesday|wed|thursday|thurs|thu|friday|fri|saturday|sat`
	monthPattern   = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	meridiemGroup  = `(?:\s*(am|pm)|(a|p))`
)

var (
	dayAfterTomorrowRE = regexp.MustCompile(`\bday after tomorrow\b`)
	tomorrowRE         = regexp.MustCompile(`\b(?:tomorrow|tmrw|tmr)\b`)
	todayRE            = regexp.MustCompile(`\b(?:today|tonight)\b`)
	nextWeekRE         = regexp.MustCompile(`\bnext week\b`)
	thisWeekRE         = regexp.MustCompile(`\b(?:this|the rest of the) week\b`)
	weekdayRE          = regexp.MustCompile(`\b(?:(this|next|coming)\s+)?(` + weekdayPattern + `)s?\b`)
	numericDateRE      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?\b`)
	monthDayRE         = regexp.MustCompile(`\b(` + monthPattern + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRE         = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthPattern + `)\b`)

	durationMinutesRE = regexp.MustCompile(`\b(\d{1,3})\s*(?:minutes|minute|mins|min)\b`)
	durationHoursRE   = regexp.MustCompile(`\b(\d{1,2})\s*(?:and a half\s+)?(?:hours|hour|hrs|hr)\b`)
	halfHourRE        = regexp.MustCompile(`\bhalf (?:an )?hour\b`)
	hourAndHalfRE     = regexp.MustCompile(`\b(?:an |one )?hour and a half\b`)
	anHourRE          = regexp.MustCompile(`\b(?:an|one) hour\b`)

	dashRangeRE = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?` + `(?:\s*(am|pm))?\s*-\s*(\d{1,2})(?::(\d{2}))?(?:\s*(am|pm))?\b`)
	wordRangeRE = regexp.MustCompile(`\b(?:from|between)\s+(\d{1,2}|noon)(?::(\d{2}))?(?:\s*(am|pm))?\s+(?:to|and|until|till)\s+(\d{1,2}|noon)(?::(\d{2}))?(?:\s*(am|pm))?\b`)
	meridiemRE  = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?` + meridiemGroup + `\b`)
	clockRE     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	atHourRE    = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	noonRE      = regexp.MustCompile(`\b(?:noon|midday)\b`)

	morningRE   = regexp.MustCompile(`\bmornings?\b`)
	afternoonRE = regexp.MustCompile(`\bafternoons?\b`)
	eveningRE   = regexp.MustCompile(`\b(?:evenings?|tonight|after work)\b`)
)

// Extract resolves the date and time-of-day request in normalized text
// relative to now. It never fails: text without any recognizable expression
// yields an empty DateQuery.
func Extract(text string, now time.Time) DateQuery {
	text = strings.ToLower(strings.TrimSpace(text))
	var q DateQuery
	if text == "" {
		return q
	}
	today := startOfDay(now)

	// Dates first, then blank them out so their digits are not read as times.
	rest := text
	rest = extractDate(rest, today, &q)
	rest = stripDurations(rest)
	extractTime(rest, &q)

	if q.Band == BandNone && q.Range == nil && q.At == nil {
		q.Band = extractBand(text)
	}
	return q
}

func extractDate(text string, today time.Time, q *DateQuery) string {
	if m := numericDateRE.FindStringSubmatchIndex(text); m != nil {
		a, _ := strconv.Atoi(text[m[2]:m[3]])
		b, _ := strconv.Atoi(text[m[4]:m[5]])
		year := 0
		if m[6] >= 0 {
			year, _ = strconv.Atoi(text[m[6]:m[7]])
			if year < 100 {
				year += 2000
			}
		}
		if d, ok := resolveNumericDate(a, b, year, today); ok {
			q.Date = d
			return blank(text, m[0], m[1])
		}
	}
	if m := monthDayRE.FindStringSubmatchIndex(text); m != nil {
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		if d, ok := resolveMonthDay(monthByPrefix[text[m[2]:m[2]+3]], day, today); ok {
			q.Date = d
			return blank(text, m[0], m[1])
		}
	}
	if m := dayMonthRE.FindStringSubmatchIndex(text); m != nil {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		if d, ok := resolveMonthDay(monthByPrefix[text[m[4]:m[4]+3]], day, today); ok {
			q.Date = d
			return blank(text, m[0], m[1])
		}
	}
	if m := weekdayRE.FindStringSubmatchIndex(text); m != nil {
		qualifier := ""
		if m[2] >= 0 {
			qualifier = text[m[2]:m[3]]
		}
		target := weekdayByName[text[m[4]:m[5]]]
		q.Date = resolveWeekday(target, qualifier, today)
		return blank(text, m[0], m[1])
	}
	switch {
	case dayAfterTomorrowRE.MatchString(text):
		q.Date = today.AddDate(0, 0, 2)
	case tomorrowRE.MatchString(text):
		q.Date = today.AddDate(0, 0, 1)
	case todayRE.MatchString(text):
		q.Date = today
	case nextWeekRE.MatchString(text):
		monday := today.AddDate(0, 0, daysUntil(today.Weekday(), time.Monday, true))
		q.Date = monday
		q.EndDate = monday.AddDate(0, 0, 6)
	case thisWeekRE.MatchString(text):
		q.Date = today
		q.EndDate = today.AddDate(0, 0, daysUntil(today.Weekday(), time.Sunday, false))
	}
	return text
}

// resolveNumericDate reads a/b month-first. Day-first is used only when the
// month-first reading is not a real calendar date.
func resolveNumericDate(a, b, year int, today time.Time) (time.Time, bool) {
	if d, ok := calendarDate(year, a, b, today); ok {
		return d, true
	}
	return calendarDate(year, b, a, today)
}

func calendarDate(year, month, day int, today time.Time) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	explicitYear := year != 0
	if !explicitYear {
		year = today.Year()
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	if !explicitYear && d.Before(today) {
		d = d.AddDate(1, 0, 0)
		if d.Month() != time.Month(month) {
			return time.Time{}, false
		}
	}
	return d, true
}

func resolveMonthDay(month time.Month, day int, today time.Time) (time.Time, bool) {
	if month == 0 {
		return time.Time{}, false
	}
	return calendarDate(0, int(month), day, today)
}

// resolveWeekday maps "this X" to the nearest X on or after today and a bare
// or "next" X to the nearest X strictly after today.
func resolveWeekday(target time.Weekday, qualifier string, today time.Time) time.Time {
	strict := qualifier != "this"
	return today.AddDate(0, 0, daysUntil(today.Weekday(), target, strict))
}

func daysUntil(from, to time.Weekday, strict bool) int {
	n := (int(to) - int(from) + 7) % 7
	if n == 0 && strict {
		n = 7
	}
	return n
}

func extractTime(text string, q *DateQuery) {
	if from, to, ok := parseRange(text); ok {
		q.Range = &ClockRange{From: from, To: to}
		return
	}
	if c, ok := parsePoint(text); ok {
		q.At = &c
	}
}

func parseRange(text string) (Clock, Clock, bool) {
	for _, re := range []*regexp.Regexp{wordRangeRE, dashRangeRE} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		from, to, ok := resolveRange(
			endpoint{hour: m[1], minute: m[2], meridiem: m[3]},
			endpoint{hour: m[4], minute: m[5], meridiem: m[6]},
		)
		if ok {
			return from, to, true
		}
	}
	return 0, 0, false
}

type endpoint struct {
	hour, minute, meridiem string
}

func (e endpoint) parts() (int, int, bool) {
	if e.hour == "noon" {
		return 12, 0, true
	}
	h, err := strconv.Atoi(e.hour)
	if err != nil {
		return 0, 0, false
	}
	m := 0
	if e.minute != "" {
		if m, err = strconv.Atoi(e.minute); err != nil {
			return 0, 0, false
		}
	}
	if h > 23 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// resolveRange applies meridiem markers across a range. A marker on one end
// carries to the other; a range with no markers and both ends at or below
// 12 is read as afternoon.
func resolveRange(start, end endpoint) (Clock, Clock, bool) {
	sh, sm, ok := start.parts()
	if !ok {
		return 0, 0, false
	}
	eh, em, ok := end.parts()
	if !ok {
		return 0, 0, false
	}

	switch {
	case start.meridiem != "" && end.meridiem != "":
		sh = applyMeridiem(sh, start.meridiem)
		eh = applyMeridiem(eh, end.meridiem)
	case end.meridiem != "":
		eh = applyMeridiem(eh, end.meridiem)
		if candidate := applyMeridiem(sh, end.meridiem); candidate < eh {
			sh = candidate
		} else {
			sh = applyMeridiem(sh, "am")
		}
	case start.meridiem != "":
		sh = applyMeridiem(sh, start.meridiem)
		if eh <= 12 && eh+12 > sh && eh <= sh {
			eh += 12
		}
	case sh <= 12 && eh <= 12:
		if ph, pe := applyMeridiem(sh, "pm"), applyMeridiem(eh, "pm"); pe > ph {
			sh, eh = ph, pe
		} else {
			// "10-2" wraps past noon.
			eh = applyMeridiem(eh, "pm")
		}
	}
	from, to := NewClock(sh, sm), NewClock(eh, em)
	if to <= from || eh > 23 {
		return 0, 0, false
	}
	return from, to, true
}

func parsePoint(text string) (Clock, bool) {
	c, exact, ok := ParseTime(text)
	if !ok {
		return 0, false
	}
	if !exact && c.Hour() <= 12 {
		return NewClock(DefaultHour(c.Hour()), c.Minute()), true
	}
	return c, true
}

// ParseTime finds the first explicit time point in text. exact is false
// when the hour was written without am/pm and could still mean either half
// of the day; the returned clock then carries the hour as written.
func ParseTime(text string) (c Clock, exact bool, ok bool) {
	if m := meridiemRE.FindStringSubmatch(text); m != nil {
		meridiem := m[3]
		if meridiem == "" {
			meridiem = m[4] + "m"
		}
		h, mm, valid := endpoint{hour: m[1], minute: m[2]}.parts()
		if valid && h >= 1 && h <= 12 {
			return NewClock(applyMeridiem(h, meridiem), mm), true, true
		}
	}
	if m := clockRE.FindStringSubmatch(text); m != nil {
		h, mm, valid := endpoint{hour: m[1], minute: m[2]}.parts()
		if valid {
			return NewClock(h, mm), h == 0 || h > 12, true
		}
	}
	if noonRE.MatchString(text) {
		return NewClock(12, 0), true, true
	}
	if m := atHourRE.FindStringSubmatch(text); m != nil {
		h, _, valid := endpoint{hour: m[1]}.parts()
		if valid {
			return NewClock(h, 0), h == 0 || h > 12, true
		}
	}
	return 0, false, false
}

// DefaultHour resolves an hour written without am/pm: 1 through 7 are read
// as afternoon or evening, everything else is taken as written.
func DefaultHour(h int) int {
	if h >= 1 && h <= 7 {
		return h + 12
	}
	return h
}

func applyMeridiem(h int, meridiem string) int {
	switch meridiem {
	case "pm":
		if h < 12 {
			return h + 12
		}
	case "am":
		if h == 12 {
			return 0
		}
	}
	return h
}

func extractBand(text string) Band {
	switch {
	case eveningRE.MatchString(text):
		return BandEvening
	case afternoonRE.MatchString(text):
		return BandAfternoon
	case morningRE.MatchString(text):
		return BandMorning
	default:
		return BandNone
	}
}

// ExtractDuration finds a requested meeting length such as "30 minutes",
// "2 hours" or "half an hour".
func ExtractDuration(text string) (time.Duration, bool) {
	text = strings.ToLower(text)
	switch {
	case hourAndHalfRE.MatchString(text):
		return 90 * time.Minute, true
	case halfHourRE.MatchString(text):
		return 30 * time.Minute, true
	}
	if m := durationHoursRE.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		d := time.Duration(h) * time.Hour
		if strings.Contains(m[0], "and a half") {
			d += 30 * time.Minute
		}
		if d > 0 {
			return d, true
		}
	}
	if m := durationMinutesRE.FindStringSubmatch(text); m != nil {
		mins, _ := strconv.Atoi(m[1])
		if mins > 0 {
			return time.Duration(mins) * time.Minute, true
		}
	}
	if anHourRE.MatchString(text) {
		return time.Hour, true
	}
	return 0, false
}

func stripDurations(text string) string {
	for _, re := range []*regexp.Regexp{hourAndHalfRE, halfHourRE, durationHoursRE, durationMinutesRE, anHourRE} {
		text = re.ReplaceAllStringFunc(text, func(s string) string {
			return strings.Repeat(" ", len(s))
		})
	}
	return text
}

// blank replaces text[start:end] with spaces so later passes skip it while
// byte offsets stay stable.
func blank(text string, start, end int) string {
	return text[:start] + strings.Repeat(" ", end-start) + text[end:]
}
