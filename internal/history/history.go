// Package history groups completed time entries into calendar days for the
// daily history view.
package history

import (
	"log/slog"
	"sort"
	"time"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

// DayGroup holds the completed entries that started on one calendar day,
// most recent first.
type DayGroup struct {
	Day     time.Time
	Entries []model.TimeEntry
}

// Total sums the durations of the group's entries.
func (g DayGroup) Total() time.Duration {
	var total time.Duration
	for _, e := range g.Entries {
		if d, ok := e.Duration(); ok {
			total += d
		}
	}
	return total
}

// Label returns "Today", "Yesterday" or a short weekday/date label relative to now.
func (g DayGroup) Label(now time.Time) string {
	return timecalc.FormatDayLabel(g.Day, now.In(g.Day.Location()))
}

// Snapshot is the grouped view of one fetch of the entry collection. The zero
// value means the collection has not been loaded yet.
type Snapshot struct {
	Loaded bool
	Days   []DayGroup
}

// Empty reports whether the collection was loaded and holds no completed entries.
func (s Snapshot) Empty() bool {
	return s.Loaded && len(s.Days) == 0
}

// FromEntries builds a loaded Snapshot from the full entry collection.
func FromEntries(entries []model.TimeEntry, loc *time.Location) Snapshot {
	return Snapshot{Loaded: true, Days: GroupByDay(entries, loc)}
}

// GroupByDay drops running entries, sorts the rest by start descending and
// splits them wherever the calendar day in loc changes. Entries whose start
// cannot be placed on a calendar day are skipped.
func GroupByDay(entries []model.TimeEntry, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	ended := make([]model.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if e.Running() {
			continue
		}
		if e.Start.IsZero() {
			slog.Warn("skipping time entry without a start date", "id", e.ID)
			continue
		}
		ended = append(ended, e)
	}
	sort.SliceStable(ended, func(i, j int) bool {
		return ended[i].Start.After(ended[j].Start)
	})

	groups := []DayGroup{}
	for _, e := range ended {
		start := e.Start.In(loc)
		if n := len(groups); n > 0 && timecalc.SameDay(groups[n-1].Day, start) {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, DayGroup{
			Day:     timecalc.StartOfDay(start),
			Entries: []model.TimeEntry{e},
		})
	}
	return groups
}

// Flatten returns the entries of all groups in display order.
func Flatten(groups []DayGroup) []model.TimeEntry {
	var out []model.TimeEntry
	for _, g := range groups {
		out = append(out, g.Entries...)
	}
	return out
}
