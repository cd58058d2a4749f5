package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/history"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

const shortIDLen = 8

var (
	listDays int
	listIDs  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the daily history of completed entries",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listDays, "days", 7, "Number of days to show, 0 for all")
	listCmd.Flags().BoolVar(&listIDs, "ids", true, "Show entry IDs for tp edit")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	entries, err := b.repo.ListTimeEntries(ctx)
	if err != nil {
		return storageErr(err)
	}

	now := time.Now()
	snap := history.FromEntries(entries, now.Location())
	if listDays > 0 && len(snap.Days) > listDays {
		snap.Days = snap.Days[:listDays]
	}
	printHistory(cmd.OutOrStdout(), snap, now, listIDs)
	return nil
}

// printHistory renders day groups, newest first, each with its total and one
// row per entry.
func printHistory(w io.Writer, snap history.Snapshot, now time.Time, withIDs bool) {
	switch {
	case !snap.Loaded:
		fmt.Fprintln(w, "Loading…")
		return
	case snap.Empty():
		fmt.Fprintln(w, "Better start tracking...")
		return
	}

	bold := color.New(color.Bold)
	loc := now.Location()
	for i, day := range snap.Days {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n", bold.Sprint(day.Label(now)), color.CyanString(timecalc.FormatHHMMSS(day.Total())))

		tbl := uitable.New()
		tbl.MaxColWidth = 60
		for _, e := range day.Entries {
			start, stop := e.Start.In(loc), e.Stop.In(loc)
			span := timecalc.FormatClock(start) + " - " + timecalc.FormatClock(stop)
			if withIDs {
				tbl.AddRow(" ", shortID(e.ID), span, timecalc.FormatDuration(start, stop), e.Description)
			} else {
				tbl.AddRow(" ", span, timecalc.FormatDuration(start, stop), e.Description)
			}
		}
		fmt.Fprintln(w, tbl)
	}
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
