package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/edit"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
)

var (
	editDate        string
	editStart       string
	editStop        string
	editDescription string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the date, start, stop or description of a completed entry",
	Long: `Edit a completed time entry. <id> may be any unique prefix shown by tp list.
Start and stop take clock times like "9:00 AM" or "5:30 PM"; a stop earlier
than the start is placed on the following day.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editDate, "date", "", "New date (YYYY-MM-DD)")
	editCmd.Flags().StringVar(&editStart, "start", "", "New start clock time")
	editCmd.Flags().StringVar(&editStop, "stop", "", "New stop clock time")
	editCmd.Flags().StringVar(&editDescription, "description", "", "New description")
}

func runEdit(cmd *cobra.Command, args []string) error {
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
	e, err := findEntry(entries, args[0])
	if err != nil {
		return err
	}

	changes := editChanges{
		date:        optional(cmd, "date", editDate),
		start:       optional(cmd, "start", editStart),
		stop:        optional(cmd, "stop", editStop),
		description: optional(cmd, "description", editDescription),
	}
	updated, err := applyEdit(ctx, b.repo, e, changes, time.Local)
	if err != nil {
		return storageErr(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", shortID(updated.ID), entryLine(updated, time.Local))
	return nil
}

// editChanges holds the flags the user actually set.
type editChanges struct {
	date, start, stop, description *string
}

func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func findEntry(entries []model.TimeEntry, ref string) (model.TimeEntry, error) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	id, err := store.MatchID(ids, ref)
	if err != nil {
		return model.TimeEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.TimeEntry{}, store.ErrNotFound
}

// applyEdit runs the form flow: each clock field is blurred in turn. Invalid
// text reverts the field and aborts the edit before anything is written.
func applyEdit(ctx context.Context, repo store.EntryRepository, e model.TimeEntry, ch editChanges, loc *time.Location) (model.TimeEntry, error) {
	var form *edit.Form
	if ch.date != nil || ch.start != nil || ch.stop != nil {
		var err error
		if form, err = edit.NewForm(e, loc); err != nil {
			return model.TimeEntry{}, err
		}
		if ch.date != nil {
			if err := form.SetDate(*ch.date); err != nil {
				return model.TimeEntry{}, usageErrorf("invalid date %q: use YYYY-MM-DD", *ch.date)
			}
		}
		if ch.start != nil {
			form.SetStartText(*ch.start)
			if !form.BlurStart() {
				return model.TimeEntry{}, usageErrorf("invalid start time %q: use h:mm AM/PM, keeping %s", *ch.start, form.StartText())
			}
		}
		if ch.stop != nil {
			form.SetStopText(*ch.stop)
			if !form.BlurStop() {
				return model.TimeEntry{}, usageErrorf("invalid stop time %q: use h:mm AM/PM, keeping %s", *ch.stop, form.StopText())
			}
		}
	}

	if ch.description != nil && *ch.description != e.Description {
		updated, err := repo.UpdateTimeEntry(ctx, model.EntryUpdate{ID: e.ID, Description: ch.description})
		if err != nil {
			return model.TimeEntry{}, fmt.Errorf("saving description: %w", err)
		}
		e = updated
	}
	if form == nil {
		return e, nil
	}
	updated, err := form.Save(ctx, repo)
	if err != nil {
		return model.TimeEntry{}, err
	}
	updated.Description = e.Description
	return updated, nil
}
