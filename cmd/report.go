package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/history"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show this week's total per day",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

func runReport(cmd *cobra.Command, args []string) error {
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
	return writeReport(cmd.OutOrStdout(), reportFormat, timecalc.ISOWeekLabel(now), weekGroups(entries, now))
}

// weekGroups returns the day groups of the ISO week containing now.
func weekGroups(entries []model.TimeEntry, now time.Time) []history.DayGroup {
	from, to := timecalc.WeekRange(now)
	var out []history.DayGroup
	for _, g := range history.GroupByDay(entries, now.Location()) {
		if g.Day.Before(from) || g.Day.After(to) {
			continue
		}
		out = append(out, g)
	}
	return out
}

type reportDay struct {
	Date            string `json:"date"`
	Label           string `json:"label"`
	Entries         int    `json:"entries"`
	DurationMinutes int64  `json:"duration_minutes"`
}

type reportDoc struct {
	Week         string      `json:"week"`
	Days         []reportDay `json:"days"`
	TotalMinutes int64       `json:"total_minutes"`
}

func buildReport(label string, groups []history.DayGroup) reportDoc {
	doc := reportDoc{Week: label, Days: []reportDay{}}
	// Oldest day first reads naturally in a weekly report.
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		mins := int64(g.Total() / time.Minute)
		doc.Days = append(doc.Days, reportDay{
			Date:            g.Day.Format("2006-01-02"),
			Label:           g.Day.Format("Mon 2 Jan"),
			Entries:         len(g.Entries),
			DurationMinutes: mins,
		})
		doc.TotalMinutes += mins
	}
	return doc
}

func writeReport(w io.Writer, format, label string, groups []history.DayGroup) error {
	doc := buildReport(label, groups)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"date", "entries", "duration_minutes"})
		for _, d := range doc.Days {
			_ = cw.Write([]string{d.Date, strconv.Itoa(d.Entries), strconv.FormatInt(d.DurationMinutes, 10)})
		}
		cw.Flush()
		return cw.Error()
	case "md":
		fmt.Fprintf(w, "# Week %s\n\n", doc.Week)
		fmt.Fprintln(w, "| Day | Entries | Duration |")
		fmt.Fprintln(w, "|-----|---------|----------|")
		for _, d := range doc.Days {
			fmt.Fprintf(w, "| %s | %d | %s |\n", d.Label, d.Entries, timecalc.FormatShort(time.Duration(d.DurationMinutes)*time.Minute))
		}
		fmt.Fprintf(w, "\n**Total: %s**\n", timecalc.FormatShort(time.Duration(doc.TotalMinutes)*time.Minute))
		return nil
	default:
		return usageErrorf("unknown format %q: use md, csv or json", format)
	}
}
