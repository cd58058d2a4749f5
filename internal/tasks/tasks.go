// Package tasks holds the to-do list operations: the new-task input buffer
// and the partial updates of existing tasks.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
)

var ErrEmptyDescription = errors.New("task description must not be empty")

// Form is the new-task input. The buffer is cleared only after the task was
// created.
type Form struct {
	repo  store.TaskRepository
	input string
}

func NewForm(repo store.TaskRepository) *Form {
	return &Form{repo: repo}
}

func (f *Form) SetInput(text string) { f.input = text }
func (f *Form) Input() string        { return f.input }

// Submit creates a task from the buffer.
func (f *Form) Submit(ctx context.Context) (model.Task, error) {
	desc := strings.TrimSpace(f.input)
	if desc == "" {
		return model.Task{}, ErrEmptyDescription
	}
	t, err := f.repo.CreateTask(ctx, desc)
	if err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	f.input = ""
	return t, nil
}

// SetDone marks a task done or open.
func SetDone(ctx context.Context, repo store.TaskRepository, id string, done bool) (model.Task, error) {
	t, err := repo.UpdateTask(ctx, model.TaskUpdate{ID: id, IsDone: &done})
	if err != nil {
		return model.Task{}, fmt.Errorf("updating task: %w", err)
	}
	return t, nil
}

// SetTime replaces a task's hour estimate. Invalid estimates are rejected
// without a remote call.
func SetTime(ctx context.Context, repo store.TaskRepository, id string, hours float64) (model.Task, error) {
	if err := model.ValidateTaskHours(hours); err != nil {
		return model.Task{}, err
	}
	t, err := repo.UpdateTask(ctx, model.TaskUpdate{ID: id, Time: &hours})
	if err != nil {
		return model.Task{}, fmt.Errorf("updating task: %w", err)
	}
	return t, nil
}

// Delete removes a task. There is no undo.
func Delete(ctx context.Context, repo store.TaskRepository, id string) error {
	if err := repo.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// Open returns the tasks not yet done, in list order.
func Open(list []model.Task) []model.Task {
	out := make([]model.Task, 0, len(list))
	for _, t := range list {
		if !t.IsDone {
			out = append(out, t)
		}
	}
	return out
}

// TotalHours sums the estimates of list.
func TotalHours(list []model.Task) float64 {
	var total float64
	for _, t := range list {
		total += t.Time
	}
	return total
}

// Resolve finds a task by ID or unique ID prefix.
func Resolve(list []model.Task, ref string) (model.Task, error) {
	ids := make([]string, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}
	id, err := store.MatchID(ids, ref)
	if err != nil {
		return model.Task{}, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, store.ErrNotFound
}
