package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/history"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/stopwatch"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running entry or today's total",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	sw := stopwatch.New(b.repo)
	defer sw.Close()

	entries, err := sw.Refresh(ctx)
	if err != nil {
		return storageErr(err)
	}
	printStatus(cmd.OutOrStdout(), sw.Snapshot(), entries, time.Now())
	return nil
}

func printStatus(w io.Writer, snap stopwatch.Snapshot, entries []model.TimeEntry, now time.Time) {
	if snap.State == stopwatch.Running {
		desc := snap.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(w, "%s %s  %s since %s\n",
			color.GreenString("●"), color.New(color.Bold).Sprint(snap.ElapsedText()),
			desc, timecalc.FormatClock(snap.Entry.Start.In(now.Location())))
	} else {
		fmt.Fprintln(w, "No timer running.")
	}

	var today time.Duration
	for _, day := range history.GroupByDay(entries, now.Location()) {
		if timecalc.SameDay(day.Day, now) {
			today = day.Total()
		}
	}
	fmt.Fprintf(w, "Today: %s\n", timecalc.FormatHHMMSS(today))
}
