package timecalc

import (
	"fmt"
	"time"
)

// FormatHHMMSS formats d as zero-padded HH:MM:SS. Hours keep growing past 99;
// negative durations render as 00:00:00.
func FormatHHMMSS(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatElapsed formats the live elapsed time between start and now.
func FormatElapsed(start, now time.Time) string {
	return FormatHHMMSS(now.Sub(start))
}

// FormatDuration formats the duration of a completed span.
func FormatDuration(start, stop time.Time) string {
	return FormatHHMMSS(stop.Sub(start))
}

// FormatShort formats d as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatShort(d time.Duration) string {
	seconds := int64(d / time.Second)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatHours renders a fractional hour estimate as "1hr 30min", "45min" or "2hr".
func FormatHours(hours float64) string {
	total := int64(hours*60 + 0.5)
	if total <= 0 {
		return "0min"
	}
	h, m := total/60, total%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dhr %dmin", h, m)
	case h > 0:
		return fmt.Sprintf("%dhr", h)
	default:
		return fmt.Sprintf("%dmin", m)
	}
}

// FormatDayLabel returns "Today", "Yesterday" or a label like "Mon 2 Jan".
// The comparison counts calendar days, so the time of day does not matter.
func FormatDayLabel(date, today time.Time) string {
	switch DaysBetween(date, today) {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	}
	return date.Format("Mon 2 Jan")
}

// DaysBetween returns the number of calendar days from a to b, each taken in
// its own location.
func DaysBetween(a, b time.Time) int {
	return int(dayNumber(b) - dayNumber(a))
}

func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := StartOfDay(t.AddDate(0, 0, -(wd - 1)))
	sunday := EndOfDay(monday.AddDate(0, 0, 6))
	return monday, sunday
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
