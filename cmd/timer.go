package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/tui"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Open the interactive stopwatch and daily history",
	Long: `Open the interactive stopwatch. Type a description and press enter to
start or stop, tab to save the description of the running entry, and q, esc
or ctrl+c to quit.`,
	Args: cobra.NoArgs,
	RunE: runTimer,
}

func runTimer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	return storageErr(tui.Run(ctx, b.repo, cfg.Timer.TickInterval, time.Local))
}
