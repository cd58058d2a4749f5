// Package storetest is the behavioural suite every store.DB backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
)

// Run exercises db against the store contract. open must return a fresh,
// empty backend for each call.
func Run(t *testing.T, open func(t *testing.T) store.DB) {
	t.Run("Users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("TimeEntries", func(t *testing.T) { testTimeEntries(t, open(t)) })
	t.Run("SingleRunningEntry", func(t *testing.T) { testSingleRunning(t, open(t)) })
	t.Run("InvalidRange", func(t *testing.T) { testInvalidRange(t, open(t)) })
	t.Run("UserScoping", func(t *testing.T) { testUserScoping(t, open(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, open(t)) })
}

func testUsers(t *testing.T, db store.DB) {
	ctx := context.Background()

	u, err := db.CreateUser(ctx, model.User{Email: "ada@example.com", Username: "ada@example.com", Token: "tok-ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	_, err = db.CreateUser(ctx, model.User{Email: "ada@example.com"})
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	byEmail, err := db.UserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byToken, err := db.UserByToken(ctx, "tok-ada")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)

	_, err = db.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = db.UserByToken(ctx, "wrong")
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	_, err = db.UserByToken(ctx, "")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func testTimeEntries(t *testing.T, db store.DB) {
	ctx := context.Background()
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	created, err := db.CreateTimeEntry(ctx, "u1", model.NewTimeEntry{Description: "write report", Start: start})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.True(t, created.Running())

	stop := start.Add(90 * time.Minute)
	updated, err := db.UpdateTimeEntry(ctx, "u1", model.EntryUpdate{ID: created.ID, Stop: &stop})
	require.NoError(t, err)
	assert.False(t, updated.Running())
	assert.Equal(t, "write report", updated.Description)

	// Moving the start to another day keeps the entry listable.
	newStart := start.AddDate(0, 0, -1)
	newStop := newStart.Add(time.Hour)
	desc := "yesterday"
	_, err = db.UpdateTimeEntry(ctx, "u1", model.EntryUpdate{ID: created.ID, Start: &newStart, Stop: &newStop, Description: &desc})
	require.NoError(t, err)

	entries, err := db.ListTimeEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "yesterday", entries[0].Description)
	assert.True(t, entries[0].Start.Equal(newStart))
	require.NotNil(t, entries[0].Stop)
	assert.True(t, entries[0].Stop.Equal(newStop))

	_, err = db.UpdateTimeEntry(ctx, "u1", model.EntryUpdate{ID: "missing", Description: &desc})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSingleRunning(t *testing.T, db store.DB) {
	ctx := context.Background()
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	first, err := db.CreateTimeEntry(ctx, "u1", model.NewTimeEntry{Start: start})
	require.NoError(t, err)

	_, err = db.CreateTimeEntry(ctx, "u1", model.NewTimeEntry{Start: start.Add(time.Minute)})
	assert.ErrorIs(t, err, store.ErrAlreadyRunning)

	// Another user is unaffected.
	_, err = db.CreateTimeEntry(ctx, "u2", model.NewTimeEntry{Start: start})
	assert.NoError(t, err)

	stop := start.Add(time.Hour)
	_, err = db.UpdateTimeEntry(ctx, "u1", model.EntryUpdate{ID: first.ID, Stop: &stop})
	require.NoError(t, err)

	_, err = db.CreateTimeEntry(ctx, "u1", model.NewTimeEntry{Start: stop})
	assert.NoError(t, err)
}

func testInvalidRange(t *testing.T, db store.DB) {
	ctx := context.Background()
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	e, err := db.CreateTimeEntry(ctx, "u1", model.NewTimeEntry{Start: start})
	require.NoError(t, err)

	before := start.Add(-time.Minute)
	_, err = db.UpdateTimeEntry(ctx, "u1", model.EntryUpdate{ID: e.ID, Stop: &before})
	assert.ErrorIs(t, err, store.ErrInvalidRange)

	entries, err := db.ListTimeEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Running(), "rejected update must not be persisted")
}

func testUserScoping(t *testing.T, db store.DB) {
	ctx := context.Background()
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	e, err := db.CreateTimeEntry(ctx, "u1", model.NewTimeEntry{Start: start})
	require.NoError(t, err)
	task, err := db.CreateTask(ctx, "u1", "private")
	require.NoError(t, err)

	entries, err := db.ListTimeEntries(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, entries)

	tasks, err := db.ListTasks(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	stop := start.Add(time.Hour)
	_, err = db.UpdateTimeEntry(ctx, "u2", model.EntryUpdate{ID: e.ID, Stop: &stop})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, db.DeleteTask(ctx, "u2", task.ID), store.ErrNotFound)
}

func testTasks(t *testing.T, db store.DB) {
	ctx := context.Background()

	first, err := db.CreateTask(ctx, "u1", "plan sprint")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTaskHours, first.Time)
	assert.False(t, first.IsDone)

	second, err := db.CreateTask(ctx, "u1", "review PRs")
	require.NoError(t, err)

	done := true
	hours := 2.5
	updated, err := db.UpdateTask(ctx, "u1", model.TaskUpdate{ID: first.ID, IsDone: &done, Time: &hours})
	require.NoError(t, err)
	assert.True(t, updated.IsDone)
	assert.Equal(t, 2.5, updated.Time)

	bad := 0.75
	_, err = db.UpdateTask(ctx, "u1", model.TaskUpdate{ID: first.ID, Time: &bad})
	assert.ErrorIs(t, err, model.ErrInvalidHours)

	_, err = db.UpdateTask(ctx, "u1", model.TaskUpdate{ID: "missing", IsDone: &done})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, db.DeleteTask(ctx, "u1", second.ID))
	assert.ErrorIs(t, db.DeleteTask(ctx, "u1", second.ID), store.ErrNotFound)

	tasks, err := db.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, 2.5, tasks[0].Time)
}
