// Package store defines the persistence contract for users, time entries and
// tasks. Backends live in the bolt and file subpackages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/timeplan/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyRunning = errors.New("a time entry is already running")
	ErrInvalidRange   = errors.New("stop must not be before start")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrEmailTaken     = errors.New("email already registered")
)

// DB is implemented by every storage backend. Entries and tasks are always
// scoped to the owning user.
type DB interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByToken(ctx context.Context, token string) (model.User, error)

	ListTimeEntries(ctx context.Context, userID string) ([]model.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, userID string, in model.NewTimeEntry) (model.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, userID string, upd model.EntryUpdate) (model.TimeEntry, error)

	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	CreateTask(ctx context.Context, userID, description string) (model.Task, error)
	UpdateTask(ctx context.Context, userID string, upd model.TaskUpdate) (model.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error

	Close() error
}

// EntryRepository is the time-entry half of Repository.
type EntryRepository interface {
	ListTimeEntries(ctx context.Context) ([]model.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, in model.NewTimeEntry) (model.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, upd model.EntryUpdate) (model.TimeEntry, error)
}

// TaskRepository is the task half of Repository.
type TaskRepository interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, description string) (model.Task, error)
	UpdateTask(ctx context.Context, upd model.TaskUpdate) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Repository is the data service as seen by one signed-in user.
type Repository interface {
	EntryRepository
	TaskRepository
}

// ForUser binds db to a single user.
func ForUser(db DB, userID string) Repository {
	return &scoped{db: db, userID: userID}
}

type scoped struct {
	db     DB
	userID string
}

func (s *scoped) ListTimeEntries(ctx context.Context) ([]model.TimeEntry, error) {
	return s.db.ListTimeEntries(ctx, s.userID)
}

func (s *scoped) CreateTimeEntry(ctx context.Context, in model.NewTimeEntry) (model.TimeEntry, error) {
	return s.db.CreateTimeEntry(ctx, s.userID, in)
}

func (s *scoped) UpdateTimeEntry(ctx context.Context, upd model.EntryUpdate) (model.TimeEntry, error) {
	return s.db.UpdateTimeEntry(ctx, s.userID, upd)
}

func (s *scoped) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.db.ListTasks(ctx, s.userID)
}

func (s *scoped) CreateTask(ctx context.Context, description string) (model.Task, error) {
	return s.db.CreateTask(ctx, s.userID, description)
}

func (s *scoped) UpdateTask(ctx context.Context, upd model.TaskUpdate) (model.Task, error) {
	return s.db.UpdateTask(ctx, s.userID, upd)
}

func (s *scoped) DeleteTask(ctx context.Context, id string) error {
	return s.db.DeleteTask(ctx, s.userID, id)
}

// ApplyEntryUpdate applies upd to e and checks the resulting range. Backends
// share it so both enforce the same rules.
func ApplyEntryUpdate(e model.TimeEntry, upd model.EntryUpdate) (model.TimeEntry, error) {
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Start != nil {
		e.Start = *upd.Start
	}
	if upd.Stop != nil {
		stop := *upd.Stop
		e.Stop = &stop
	}
	if e.Stop != nil && e.Stop.Before(e.Start) {
		return model.TimeEntry{}, ErrInvalidRange
	}
	return e, nil
}

// ApplyTaskUpdate applies upd to t, validating a new hour estimate.
func ApplyTaskUpdate(t model.Task, upd model.TaskUpdate) (model.Task, error) {
	if upd.IsDone != nil {
		t.IsDone = *upd.IsDone
	}
	if upd.Time != nil {
		if err := model.ValidateTaskHours(*upd.Time); err != nil {
			return model.Task{}, err
		}
		t.Time = *upd.Time
	}
	return t, nil
}

// HasRunning reports whether any entry in entries is still running.
func HasRunning(entries []model.TimeEntry) bool {
	for _, e := range entries {
		if e.Running() {
			return true
		}
	}
	return false
}

// NewTask returns a task with the store defaults applied.
func NewTask(id, userID, description string, now time.Time) model.Task {
	return model.Task{
		ID:          id,
		UserID:      userID,
		Description: description,
		Time:        model.DefaultTaskHours,
		CreatedAt:   now,
	}
}

// ErrAmbiguous is returned by MatchID when a prefix fits several IDs.
var ErrAmbiguous = errors.New("ambiguous id prefix")

// MatchID resolves ref to one of ids, accepting an exact ID or a unique prefix.
func MatchID(ids []string, ref string) (string, error) {
	if ref == "" {
		return "", ErrNotFound
	}
	var found string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if found != "" {
				return "", fmt.Errorf("%w: %q", ErrAmbiguous, ref)
			}
			found = id
		}
	}
	if found == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	return found, nil
}
