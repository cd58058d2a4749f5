package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/stopwatch"
)

var describeCmd = &cobra.Command{
	Use:   "describe <text...>",
	Short: "Change the description of the running entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
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
	if sw.Snapshot().State != stopwatch.Running {
		return stopwatch.ErrNotRunning
	}

	sw.SetDescription(strings.Join(args, " "))
	if err := sw.CommitDescription(ctx); err != nil {
		return storageErr(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Description set to %q\n", sw.Snapshot().Description)
	return nil
}
