package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/stopwatch"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

var startCmd = &cobra.Command{
	Use:   "start [description...]",
	Short: "Start the stopwatch with an optional description",
	Args:  cobra.ArbitraryArgs,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
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
	if snap := sw.Snapshot(); snap.State == stopwatch.Running {
		return fmt.Errorf("%w: %q since %s", stopwatch.ErrAlreadyRunning,
			snap.Description, timecalc.FormatClock(snap.Entry.Start.Local()))
	}

	if err := sw.Start(ctx, strings.Join(args, " ")); err != nil {
		return storageErr(err)
	}
	snap := sw.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "Started %q at %s\n", snap.Description, timecalc.FormatClock(snap.Entry.Start.Local()))
	return nil
}
