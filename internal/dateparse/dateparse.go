// Package dateparse turns the date words accepted on the command line into
// calendar days.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parse resolves input to midnight of a day in now's location.
//
// Accepted forms:
//   - "2026-03-01"
//   - "today", "tomorrow", "yesterday"
//   - signed offsets: "+3d", "-2w", "+1m"
//   - weekday names: "friday" (the next one, never today)
func Parse(input string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}

	today := midnight(now)
	switch s {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if s[0] == '+' || s[0] == '-' {
		return offset(s, today)
	}

	if wd, ok := weekdays[s]; ok {
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q (want YYYY-MM-DD, today, +Nd, -Nw, a weekday...)", input)
}

func offset(s string, today time.Time) (time.Time, error) {
	if len(s) < 3 {
		return time.Time{}, fmt.Errorf("incomplete offset %q", s)
	}
	n, err := strconv.Atoi(s[1 : len(s)-1])
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("invalid offset %q", s)
	}
	if s[0] == '-' {
		n = -n
	}
	switch s[len(s)-1] {
	case 'd':
		return today.AddDate(0, 0, n), nil
	case 'w':
		return today.AddDate(0, 0, 7*n), nil
	case 'm':
		return today.AddDate(0, n, 0), nil
	}
	return time.Time{}, fmt.Errorf("unknown unit in %q (use d, w or m)", s)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
