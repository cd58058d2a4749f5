package history_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/timeplan/internal/history"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

func entry(id string, start time.Time, d time.Duration) model.TimeEntry {
	stop := start.Add(d)
	return model.TimeEntry{ID: id, Start: start, Stop: &stop}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 2, day, hour, minute, 0, 0, time.UTC)
}

func TestGroupByDay(t *testing.T) {
	entries := []model.TimeEntry{
		entry("a", at(26, 9, 0), time.Hour),
		entry("b", at(27, 14, 0), 30*time.Minute),
		{ID: "running", Start: at(27, 16, 0)},
		entry("c", at(27, 8, 0), 2*time.Hour),
		entry("d", at(25, 23, 30), time.Hour),
	}

	groups := history.GroupByDay(entries, time.UTC)
	require.Len(t, groups, 3)

	assert.True(t, groups[0].Day.Equal(at(27, 0, 0)))
	assert.Equal(t, []string{"b", "c"}, ids(groups[0].Entries))
	assert.Equal(t, 150*time.Minute, groups[0].Total())

	assert.Equal(t, []string{"a"}, ids(groups[1].Entries))
	assert.Equal(t, []string{"d"}, ids(groups[2].Entries))
	// Crossing midnight still belongs to the start day.
	assert.Equal(t, time.Hour, groups[2].Total())
}

func TestGroupByDayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 23:00 UTC on the 26th is 01:00 on the 27th in UTC+2.
	entries := []model.TimeEntry{
		entry("late", at(26, 23, 0), time.Minute),
		entry("early", at(26, 10, 0), time.Minute),
	}

	assert.Len(t, history.GroupByDay(entries, time.UTC), 1)
	assert.Len(t, history.GroupByDay(entries, loc), 2)
}

func TestGroupByDaySkipsZeroStart(t *testing.T) {
	stop := at(27, 10, 0)
	entries := []model.TimeEntry{
		{ID: "broken", Stop: &stop},
		entry("ok", at(27, 9, 0), time.Hour),
	}
	groups := history.GroupByDay(entries, time.UTC)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"ok"}, ids(groups[0].Entries))
}

func TestSnapshot(t *testing.T) {
	var pending history.Snapshot
	assert.False(t, pending.Loaded)
	assert.False(t, pending.Empty())

	onlyRunning := history.FromEntries([]model.TimeEntry{{ID: "r", Start: at(27, 9, 0)}}, time.UTC)
	assert.True(t, onlyRunning.Loaded)
	assert.True(t, onlyRunning.Empty())

	none := history.FromEntries(nil, time.UTC)
	assert.True(t, none.Empty())
	assert.NotNil(t, none.Days)
}

func TestLabel(t *testing.T) {
	groups := history.GroupByDay([]model.TimeEntry{
		entry("a", at(27, 9, 0), time.Hour),
		entry("b", at(26, 9, 0), time.Hour),
		entry("c", at(23, 9, 0), time.Hour),
	}, time.UTC)
	now := at(27, 18, 0)

	require.Len(t, groups, 3)
	assert.Equal(t, "Today", groups[0].Label(now))
	assert.Equal(t, "Yesterday", groups[1].Label(now))
	assert.Equal(t, "Mon 23 Feb", groups[2].Label(now))
}

// Flattening the groups yields every completed entry exactly once, sorted by
// start descending, with group boundaries exactly at calendar-day changes.
func TestGroupByDayPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := at(1, 0, 0)

	for round := 0; round < 50; round++ {
		var entries []model.TimeEntry
		completed := map[string]bool{}
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("e%d", i)
			start := base.Add(time.Duration(rng.Intn(10*24*60)) * time.Minute)
			if rng.Intn(10) == 0 {
				entries = append(entries, model.TimeEntry{ID: id, Start: start})
				continue
			}
			entries = append(entries, entry(id, start, time.Duration(rng.Intn(300))*time.Minute))
			completed[id] = true
		}

		groups := history.GroupByDay(entries, time.UTC)
		flat := history.Flatten(groups)
		require.Len(t, flat, len(completed))

		for i, e := range flat {
			assert.True(t, completed[e.ID], "unexpected entry %s", e.ID)
			if i > 0 {
				assert.False(t, e.Start.After(flat[i-1].Start), "not sorted descending")
			}
		}
		for gi, g := range groups {
			for _, e := range g.Entries {
				assert.True(t, timecalc.SameDay(g.Day, e.Start))
			}
			if gi > 0 {
				assert.False(t, timecalc.SameDay(groups[gi-1].Day, g.Day), "adjacent groups share a day")
			}
		}
	}
}

func ids(entries []model.TimeEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
