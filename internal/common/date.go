package common

import (
	"fmt"
	"strings"
	"time"
)

// germanDateLayout matches upstream day-first dates such as "18.03.2025".
// The layout accepts single-digit day and month as well ("1.3.2025").
const germanDateLayout = "2.1.2006"

// ParseGermanDate parses an upstream DD.MM.YYYY date.
func ParseGermanDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := time.Parse(germanDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid german date %q: %w", s, err)
	}
	return t, nil
}

// NormalizeGermanDate converts an upstream DD.MM.YYYY date into ISO
// YYYY-MM-DD form. Malformed input returns an error rather than a
// misleading date.
func NormalizeGermanDate(s string) (string, error) {
	t, err := ParseGermanDate(s)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}
