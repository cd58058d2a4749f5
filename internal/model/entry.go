package model

import "time"

// TimeEntry is one continuous span of tracked work. A nil Stop means the
// entry is still running.
type TimeEntry struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
}

// Running reports whether the entry has no stop time yet.
func (e TimeEntry) Running() bool {
	return e.Stop == nil
}

// Duration returns stop - start for a completed entry and false for a running one.
func (e TimeEntry) Duration() (time.Duration, bool) {
	if e.Stop == nil {
		return 0, false
	}
	return e.Stop.Sub(e.Start), true
}

// NewTimeEntry is the payload for creating a running entry.
type NewTimeEntry struct {
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
}

// EntryUpdate is a partial update of a time entry. Nil fields are left untouched.
type EntryUpdate struct {
	ID          string     `json:"id"`
	Description *string    `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	Stop        *time.Time `json:"stop,omitempty"`
}

// DayFile is the top-level structure stored in each daily JSON file.
type DayFile struct {
	Date    string      `json:"date"`
	Entries []TimeEntry `json:"entries"`
}
