// Package edit reconciles independently edited date, start and stop fields of
// a completed time entry into one start/stop pair.
package edit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

const dateLayout = "2006-01-02"

// ErrEntryRunning is returned when a form is opened on a running entry.
var ErrEntryRunning = errors.New("cannot edit a running time entry")

// Updater persists the reconciled range.
type Updater interface {
	UpdateTimeEntry(ctx context.Context, upd model.EntryUpdate) (model.TimeEntry, error)
}

// Form is the edit buffer of one completed entry. Start and stop text are
// free-form until blurred; only validated values are ever saved.
type Form struct {
	entry model.TimeEntry
	loc   *time.Location

	date      time.Time
	startText string
	stopText  string
	start     timecalc.Clock
	stop      timecalc.Clock
	duration  string
}

// NewForm opens a form on e, showing its times in loc.
func NewForm(e model.TimeEntry, loc *time.Location) (*Form, error) {
	if e.Stop == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryRunning, e.ID)
	}
	if loc == nil {
		loc = time.Local
	}
	f := &Form{entry: e, loc: loc}
	f.Reset()
	return f, nil
}

// Reset restores every field from the entry's last persisted range.
func (f *Form) Reset() {
	start := f.entry.Start.In(f.loc)
	stop := f.entry.Stop.In(f.loc)
	f.date = timecalc.StartOfDay(start)
	f.start = timecalc.ClockOf(start)
	f.stop = timecalc.ClockOf(stop)
	f.startText = f.start.String()
	f.stopText = f.stop.String()
	f.recompute()
}

func (f *Form) Entry() model.TimeEntry { return f.entry }
func (f *Form) Date() time.Time        { return f.date }
func (f *Form) DateText() string       { return f.date.Format(dateLayout) }
func (f *Form) StartText() string      { return f.startText }
func (f *Form) StopText() string       { return f.stopText }

// Duration is the hh:mm:ss length of the range currently in the form.
func (f *Form) Duration() string { return f.duration }

// SetDate parses a YYYY-MM-DD date. An invalid date leaves the field unchanged.
func (f *Form) SetDate(text string) error {
	d, err := time.ParseInLocation(dateLayout, text, f.loc)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", text)
	}
	f.date = d
	f.recompute()
	return nil
}

// SetStartText and SetStopText record typed text without validating it.
func (f *Form) SetStartText(text string) { f.startText = text }
func (f *Form) SetStopText(text string)  { f.stopText = text }

// BlurStart validates the start text. Invalid text reverts to the last valid
// value and false is returned.
func (f *Form) BlurStart() bool {
	c, err := timecalc.ParseClock(f.startText)
	if err != nil {
		f.startText = f.start.String()
		return false
	}
	f.start = c
	f.startText = c.String()
	f.recompute()
	return true
}

// BlurStop validates the stop text like BlurStart.
func (f *Form) BlurStop() bool {
	c, err := timecalc.ParseClock(f.stopText)
	if err != nil {
		f.stopText = f.stop.String()
		return false
	}
	f.stop = c
	f.stopText = c.String()
	f.recompute()
	return true
}

// Range returns the start/stop pair the form would save.
func (f *Form) Range() (time.Time, time.Time) {
	return Reconcile(f.date, f.start, f.stop, f.loc)
}

func (f *Form) recompute() {
	start, stop := f.Range()
	f.duration = timecalc.FormatDuration(start, stop)
}

// Save persists the reconciled range. An unchanged range is not written. On
// failure all fields revert to the entry's persisted values.
func (f *Form) Save(ctx context.Context, u Updater) (model.TimeEntry, error) {
	start, stop := f.Range()
	if start.Equal(f.entry.Start) && stop.Equal(*f.entry.Stop) {
		return f.entry, nil
	}
	updated, err := u.UpdateTimeEntry(ctx, model.EntryUpdate{ID: f.entry.ID, Start: &start, Stop: &stop})
	if err != nil {
		f.Reset()
		return model.TimeEntry{}, fmt.Errorf("saving time entry: %w", err)
	}
	if updated.Stop == nil {
		return model.TimeEntry{}, fmt.Errorf("%w: %s", ErrEntryRunning, updated.ID)
	}
	f.entry = updated
	f.Reset()
	return updated, nil
}

// Reconcile places start and stop on date. A stop clock earlier than the start
// clock belongs to the following day.
func Reconcile(date time.Time, start, stop timecalc.Clock, loc *time.Location) (time.Time, time.Time) {
	from := start.On(date, loc)
	to := stop.On(date, loc)
	if to.Before(from) {
		to = stop.On(date.AddDate(0, 0, 1), loc)
	}
	return from, to
}
