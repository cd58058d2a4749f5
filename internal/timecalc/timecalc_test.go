package timecalc_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/timeplan/internal/timecalc"
)

func TestFormatHHMMSS(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{100*time.Hour + 5*time.Second, "100:00:05"},
		{1500 * time.Millisecond, "00:00:01"},
		{-5 * time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		got := timecalc.FormatHHMMSS(tt.d)
		if got != tt.want {
			t.Errorf("FormatHHMMSS(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	if got := timecalc.FormatDuration(start, start); got != "00:00:00" {
		t.Errorf("FormatDuration(t, t) = %q, want 00:00:00", got)
	}
	stop := start.Add(time.Hour + 2*time.Minute + 3*time.Second)
	if got := timecalc.FormatDuration(start, stop); got != "01:02:03" {
		t.Errorf("FormatDuration = %q, want 01:02:03", got)
	}
	if got := timecalc.FormatElapsed(start, stop); got != "01:02:03" {
		t.Errorf("FormatElapsed = %q, want 01:02:03", got)
	}
}

func TestFormatShort(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatShort(time.Duration(tt.seconds) * time.Second)
		if got != tt.want {
			t.Errorf("FormatShort(%ds) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0, "0min"},
		{0.25, "15min"},
		{0.5, "30min"},
		{1, "1hr"},
		{1.5, "1hr 30min"},
		{2.75, "2hr 45min"},
	}
	for _, tt := range tests {
		got := timecalc.FormatHours(tt.hours)
		if got != tt.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}

func TestFormatDayLabel(t *testing.T) {
	today := time.Date(2026, 2, 27, 0, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"same instant", today, "Today"},
		{"later the same day", time.Date(2026, 2, 27, 23, 59, 0, 0, time.UTC), "Today"},
		{"late yesterday", time.Date(2026, 2, 26, 23, 59, 0, 0, time.UTC), "Yesterday"},
		{"early yesterday", time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC), "Yesterday"},
		{"two days ago", time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC), "Wed 25 Feb"},
		{"previous year", time.Date(2025, 12, 31, 8, 0, 0, 0, time.UTC), "Wed 31 Dec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timecalc.FormatDayLabel(tt.date, today)
			if got != tt.want {
				t.Errorf("FormatDayLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-29 has only 23 hours in Berlin.
	a := time.Date(2026, 3, 29, 0, 0, 0, 0, loc)
	b := time.Date(2026, 3, 30, 0, 0, 0, 0, loc)
	if got := timecalc.DaysBetween(a, b); got != 1 {
		t.Errorf("DaysBetween across DST = %d, want 1", got)
	}
}

func TestWeekRange(t *testing.T) {
	// 2026-02-27 is a Friday (week 9).
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	monday, sunday := timecalc.WeekRange(fri)

	wantMonday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	wantSunday := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)

	if !monday.Equal(wantMonday) {
		t.Errorf("WeekRange monday = %v, want %v", monday, wantMonday)
	}
	if !sunday.Equal(wantSunday) {
		t.Errorf("WeekRange sunday = %v, want %v", sunday, wantSunday)
	}
}

func TestISOWeekLabel(t *testing.T) {
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	got := timecalc.ISOWeekLabel(fri)
	if got != "2026-W09" {
		t.Errorf("ISOWeekLabel = %q, want %q", got, "2026-W09")
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	b := time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	if !timecalc.SameDay(a, b) {
		t.Error("SameDay: expected same day for a and b")
	}
	if timecalc.SameDay(a, c) {
		t.Error("SameDay: expected different day for a and c")
	}
}
