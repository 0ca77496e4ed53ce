package parse

import (
	"regexp"
	"strconv"
	"time"

	"github.com/sells-group/movie-etl/internal/normalize"
)

const monthNames = `(January|February|March|April|May|June|July|August|September|October|November|December)`

var (
	// Tried in this order; the first pattern with any match wins.
	fullDateRe  = regexp.MustCompile(monthNames + `\s([0-3]?\d),\s(\d{4})`)
	numericRe   = regexp.MustCompile(`(\d{4}).([01]\d).([0-3]\d)`)
	monthYearRe = regexp.MustCompile(monthNames + `\s(\d{4})`)
	yearRe      = regexp.MustCompile(`\d{4}`)

	runningTimeRe = regexp.MustCompile(`(\d+)\s*ho?u?r?s?\s*(\d*)|(\d+)\s*m`)
)

var months = map[string]time.Month{
	"January": time.January, "February": time.February, "March": time.March,
	"April": time.April, "May": time.May, "June": time.June,
	"July": time.July, "August": time.August, "September": time.September,
	"October": time.October, "November": time.November, "December": time.December,
}

// ParseReleaseDate extracts a calendar date from free text. Patterns are
// tried in priority order: "Month D, YYYY", "YYYY-MM-DD" (any one-character
// separator), "Month YYYY", then a bare "YYYY"; the first occurrence of the
// first matching pattern is used. Missing day or month defaults to the 1st.
// A match that is not a real calendar date reports false.
func ParseReleaseDate(s string) (time.Time, bool) {
	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		return civilDate(m[3], months[m[1]], m[2])
	}
	if m := numericRe.FindStringSubmatch(s); m != nil {
		mon, _ := strconv.Atoi(m[2])
		return civilDate(m[1], time.Month(mon), m[3])
	}
	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		return civilDate(m[2], months[m[1]], "1")
	}
	if m := yearRe.FindString(s); m != "" {
		return civilDate(m, time.January, "1")
	}
	return time.Time{}, false
}

// civilDate builds a UTC midnight date, rejecting days that roll over into
// the next month.
func civilDate(year string, month time.Month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// ExtractReleaseDate joins list values and parses the result with
// ParseReleaseDate. Non-text values report false.
func ExtractReleaseDate(v normalize.Value) (time.Time, bool) {
	s, ok := normalize.Join(v)
	if !ok {
		return time.Time{}, false
	}
	return ParseReleaseDate(s)
}

// ParseRunningTime converts "2 hours 15", "2h 15" or "95 min" shaped text
// to minutes. Groups that did not participate count as zero. Text with no
// recognizable duration yields 0.
func ParseRunningTime(s string) int {
	m := runningTimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	if m[3] != "" {
		return atoiOrZero(m[3])
	}
	return atoiOrZero(m[1])*60 + atoiOrZero(m[2])
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ExtractRunningTime joins list values and parses the result with
// ParseRunningTime. Only non-text values (null, nested maps) report false;
// unrecognized text is the documented zero.
func ExtractRunningTime(v normalize.Value) (int, bool) {
	s, ok := normalize.Join(v)
	if !ok {
		return 0, false
	}
	return ParseRunningTime(s), true
}
