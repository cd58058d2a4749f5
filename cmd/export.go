package cmd

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/history"
	"github.com/Tiliavir/timeplan/internal/model"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export this week's completed entries to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md")
}

func runExport(cmd *cobra.Command, args []string) error {
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
	groups := weekGroups(entries, now)

	w := cmd.OutOrStdout()
	switch exportFormat {
	case "json":
		out := history.Flatten(groups)
		if out == nil {
			out = []model.TimeEntry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "md":
		printHistory(w, history.Snapshot{Loaded: true, Days: groups}, now, false)
		return nil
	case "csv":
		return writeCSV(w, history.Flatten(groups))
	default:
		return usageErrorf("unknown format %q: use csv, json or md", exportFormat)
	}
}

// writeCSV writes one row per completed entry.
func writeCSV(w io.Writer, entries []model.TimeEntry) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "date", "description", "start", "stop", "duration_minutes"})
	for _, e := range entries {
		d, _ := e.Duration()
		_ = cw.Write([]string{
			e.ID,
			e.Start.Local().Format("2006-01-02"),
			e.Description,
			e.Start.Format(time.RFC3339),
			e.Stop.Format(time.RFC3339),
			strconv.FormatInt(int64(d/time.Minute), 10),
		})
	}
	cw.Flush()
	return cw.Error()
}
