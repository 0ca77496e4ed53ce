// Package parse converts free-text monetary, date and duration expressions
// from encyclopedic movie records into typed values.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/movie-etl/internal/normalize"
)

var (
	millionRe = regexp.MustCompile(`(?i)^\$\s*(\d+\.?\d*)\s*milli?on`)
	billionRe = regexp.MustCompile(`(?i)^\$\s*(\d+\.?\d*)\s*billi?on`)
	scaleRe   = regexp.MustCompile(`(?i)^\$\s*\d+\.?\d*\s*[mb]illi?on`)

	// RE2 has no lookahead, so the "(?!\s[mb]illion)" guard on the grouped
	// form is applied by hand in matchGrouped.
	groupedHeadRe = regexp.MustCompile(`^\$\s*\d{1,3}`)
	groupedRe     = regexp.MustCompile(`^\$\s*\d{1,3}(?:[,.]\d{3})+`)
	scaleSuffixRe = regexp.MustCompile(`(?i)^\s[mb]illion`)

	rangeRe = regexp.MustCompile(`(\$\s*\d[\d,.]*)\s*[-–—]\s*\$?\s*\d[\d,.]*`)
)

// ParseDollarString reads s as a currency amount. s must start with the
// amount; recognized shapes, in priority order:
//
//	$1.2 million   → 1_200_000
//	$3 billion     → 3_000_000_000
//	$12,345,678    → 12_345_678 (commas or periods group the digits)
//
// Every form needs the leading "$", so "1.2 million" reports false, as
// does anything else.
func ParseDollarString(s string) (float64, bool) {
	if m := millionRe.FindStringSubmatch(s); m != nil {
		return scaled(m[1], 1e6)
	}
	if m := billionRe.FindStringSubmatch(s); m != nil {
		return scaled(m[1], 1e9)
	}
	if m, ok := matchGrouped(s); ok {
		v, err := strconv.ParseFloat(digitsOnly(m), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func scaled(num string, factor float64) (float64, bool) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v * factor, true
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// matchGrouped matches the digit-grouped form anchored at the start of s.
// When the greedy match is followed by " million"/" billion", trailing
// groups are given back one at a time, the same way a backtracking engine
// would satisfy a negative lookahead.
func matchGrouped(s string) (string, bool) {
	head := groupedHeadRe.FindStringIndex(s)
	full := groupedRe.FindStringIndex(s)
	if head == nil || full == nil {
		return "", false
	}
	for groups := (full[1] - head[1]) / 4; groups >= 1; groups-- {
		end := head[1] + 4*groups
		if !scaleSuffixRe.MatchString(s[end:]) {
			return s[:end], true
		}
	}
	return "", false
}

// CollapseRange rewrites "$A - B" ranges (hyphen, en dash or em dash) down
// to "$A", so only the lower bound is parsed. A scale word after the upper
// bound is kept: "$400 - $500 million" becomes "$400 million".
func CollapseRange(s string) string {
	return rangeRe.ReplaceAllString(s, "${1}")
}

// FindDollars returns the leftmost substring of s shaped like a currency
// amount, or false when there is none.
func FindDollars(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			continue
		}
		rest := s[i:]
		if loc := scaleRe.FindStringIndex(rest); loc != nil {
			return rest[:loc[1]], true
		}
		if m, ok := matchGrouped(rest); ok {
			return m, true
		}
	}
	return "", false
}

// ExtractDollars joins list values, collapses ranges, locates the first
// currency amount and parses it. Non-text values and text without a
// recognizable amount report false; that is the documented "missing"
// outcome, not an error.
func ExtractDollars(v normalize.Value) (float64, bool) {
	s, ok := normalize.Join(v)
	if !ok {
		return 0, false
	}
	m, ok := FindDollars(CollapseRange(s))
	if !ok {
		return 0, false
	}
	return ParseDollarString(m)
}
