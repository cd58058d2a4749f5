package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/stopwatch"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running time entry",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	sw := stopwatch.New(b.repo)
	defer sw.Close()

	if _, err := sw.Refresh(ctx); err != nil {
		return storageErr(err)
	}
	e, err := sw.Stop(ctx)
	if err != nil {
		return storageErr(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Stopped "+entryLine(e, time.Local))
	return nil
}

// entryLine summarises a completed entry.
func entryLine(e model.TimeEntry, loc *time.Location) string {
	d, _ := e.Duration()
	desc := e.Description
	if desc == "" {
		desc = "(no description)"
	}
	return fmt.Sprintf("%q: %s - %s (%s)", desc,
		timecalc.FormatClock(e.Start.In(loc)), timecalc.FormatClock(e.Stop.In(loc)),
		timecalc.FormatHHMMSS(d))
}
