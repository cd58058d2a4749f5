package timecalc

import (
	"fmt"
	"strings"
	"time"
)

const clockLayout = "3:04 PM"

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses 12-hour clock text such as "9:00 AM" or " 11:30   pm ".
// Surrounding whitespace is trimmed, inner runs collapse to one space and the
// meridiem is case-insensitive.
func ParseClock(text string) (Clock, error) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(text), " "))
	t, err := time.Parse(clockLayout, normalized)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock time %q: expected h:mm AM/PM", text)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ClockOf returns the clock time of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// On combines the calendar date of day with c in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// String renders c like "9:05 AM".
func (c Clock) String() string {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format(clockLayout)
}

// FormatClock renders the clock time of t like "9:05 AM".
func FormatClock(t time.Time) string {
	return t.Format(clockLayout)
}
