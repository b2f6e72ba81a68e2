package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

// DateLayout is the canonical form of release and purchase dates.
const DateLayout = "2006-01-02"

var (
	// trailing ", Book 3", " #4", ", Volume 2 of 5", "Part 1" annotations
	seriesSuffixPattern = regexp.MustCompile(`(?i),?\s*(?:\b(?:book|volume|part)\s*#?|#)\s*\d+.*$`)
	positionPattern     = regexp.MustCompile(`\d+(?:\.\d+)?`)

	hoursAndMinutesPattern = regexp.MustCompile(`(\d+)\s*(?:hrs?|hours?).*?(\d+)\s*(?:mins?|minutes?)`)
	clockPattern           = regexp.MustCompile(`(\d+):(\d{2})(?::(\d{2}))?`)
	minutesPattern         = regexp.MustCompile(`(\d+)\s*(?:mins?|minutes?)`)
	hoursPattern           = regexp.MustCompile(`(\d+)\s*(?:hrs?|hours?)`)

	ratingStripPattern = regexp.MustCompile(`[^0-9.]`)
)

// CleanSeriesName strips trailing book/volume/part/number annotations from a
// series name. It returns false when nothing is left.
func CleanSeriesName(raw string) (string, bool) {
	cleaned := strings.TrimSpace(seriesSuffixPattern.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// ParseSeriesPosition extracts the first number in raw, allowing a decimal
// fraction for novellas such as 1.5.
func ParseSeriesPosition(raw string) (float64, bool) {
	match := positionPattern.FindString(raw)
	if match == "" {
		return 0, false
	}
	pos, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return pos, true
}

// ParseDate parses raw permissively and returns only its calendar date.
func ParseDate(raw string) (date string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	// dateparse has panicked on malformed input in the past
	defer func() {
		if recover() != nil {
			date, ok = "", false
		}
	}()
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return "", false
	}
	return t.Format(DateLayout), true
}

// ParseDuration converts a length such as "5 hrs and 30 mins", "1:45:00",
// "42 mins" or "3 hrs" into minutes. Bare numbers carry no unit and are
// rejected.
func ParseDuration(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	if m := hoursAndMinutesPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1])*60 + atoi(m[2]), true
	}
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1])*60 + atoi(m[2]), true
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), true
	}
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1]) * 60, true
	}
	return 0, false
}

// ParseRating drops everything but digits and dots and parses the rest.
func ParseRating(raw string) (float64, bool) {
	s := ratingStripPattern.ReplaceAllString(raw, "")
	if s == "" {
		return 0, false
	}
	rating, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return rating, true
}

// atoi is only called on \d+ captures
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
