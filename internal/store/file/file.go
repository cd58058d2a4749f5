// Package file stores data as human-readable JSON files: one file per user
// and day for time entries, one task file per user and a shared user file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
)

// DB is a directory of JSON files. A single mutex serializes all access.
type DB struct {
	mu    sync.Mutex
	base  string
	now   func() time.Time
	write func(path string, v any) error
}

var _ store.DB = (*DB)(nil)

// Open prepares base as the data directory.
func Open(base string) (*DB, error) {
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating %s: %w", base, err)
	}
	return &DB{base: base, now: time.Now, write: writeJSON}, nil
}

// Close is a no-op; files are written eagerly.
func (d *DB) Close() error { return nil }

// dayFilePath returns the path of the day file holding entries that start on t's date.
func (d *DB) dayFilePath(userID string, t time.Time) string {
	return filepath.Join(d.base, userID, t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

func (d *DB) usersPath() string { return filepath.Join(d.base, "users.json") }

func (d *DB) tasksPath(userID string) string { return filepath.Join(d.base, userID, "tasks.json") }

// readJSON decodes path into v. A missing file leaves v untouched and returns
// false. A corrupt file is backed up and reported.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		slog.Warn("corrupt storage file backed up", "path", path, "backup", backupPath)
		return false, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	return true, nil
}

// writeJSON atomically writes v to path.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

func (d *DB) loadDay(path string, t time.Time) (model.DayFile, error) {
	df := model.DayFile{Date: t.Format("2006-01-02"), Entries: []model.TimeEntry{}}
	if _, err := readJSON(path, &df); err != nil {
		return model.DayFile{}, err
	}
	return df, nil
}

// dayFiles returns every day file path below the user's directory.
func (d *DB) dayFiles(userID string) ([]string, error) {
	root := filepath.Join(d.base, userID)
	var paths []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() || filepath.Base(path) == "tasks.json" || !strings.HasSuffix(path, ".json") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage error listing %s: %w", root, err)
	}
	return paths, nil
}

func (d *DB) loadAll(userID string) (map[string]model.DayFile, error) {
	paths, err := d.dayFiles(userID)
	if err != nil {
		return nil, err
	}
	days := make(map[string]model.DayFile, len(paths))
	for _, p := range paths {
		var df model.DayFile
		if _, err := readJSON(p, &df); err != nil {
			return nil, err
		}
		days[p] = df
	}
	return days, nil
}

func (d *DB) ListTimeEntries(_ context.Context, userID string) ([]model.TimeEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	days, err := d.loadAll(userID)
	if err != nil {
		return nil, err
	}
	out := []model.TimeEntry{}
	for _, df := range days {
		out = append(out, df.Entries...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (d *DB) CreateTimeEntry(_ context.Context, userID string, in model.NewTimeEntry) (model.TimeEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	days, err := d.loadAll(userID)
	if err != nil {
		return model.TimeEntry{}, err
	}
	for _, df := range days {
		if store.HasRunning(df.Entries) {
			return model.TimeEntry{}, store.ErrAlreadyRunning
		}
	}

	e := model.TimeEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: in.Description,
		Start:       in.Start,
	}
	path := d.dayFilePath(userID, e.Start)
	df, err := d.loadDay(path, e.Start)
	if err != nil {
		return model.TimeEntry{}, err
	}
	df.Entries = append(df.Entries, e)
	if err := d.write(path, df); err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}

// UpdateTimeEntry rewrites an entry in place, moving it to another day file
// when its start date changes.
func (d *DB) UpdateTimeEntry(_ context.Context, userID string, upd model.EntryUpdate) (model.TimeEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	days, err := d.loadAll(userID)
	if err != nil {
		return model.TimeEntry{}, err
	}
	for oldPath, df := range days {
		for i, e := range df.Entries {
			if e.ID != upd.ID {
				continue
			}
			updated, err := store.ApplyEntryUpdate(e, upd)
			if err != nil {
				return model.TimeEntry{}, err
			}

			newPath := d.dayFilePath(userID, updated.Start)
			if newPath == oldPath {
				df.Entries[i] = updated
				return updated, d.write(oldPath, df)
			}

			target, err := d.loadDay(newPath, updated.Start)
			if err != nil {
				return model.TimeEntry{}, err
			}
			// Source before target; a failed target write restores the source.
			original := df
			rest := make([]model.TimeEntry, 0, len(df.Entries)-1)
			rest = append(rest, df.Entries[:i]...)
			rest = append(rest, df.Entries[i+1:]...)
			if err := d.write(oldPath, model.DayFile{Date: df.Date, Entries: rest}); err != nil {
				return model.TimeEntry{}, err
			}
			target.Entries = append(target.Entries, updated)
			if err := d.write(newPath, target); err != nil {
				if restoreErr := d.write(oldPath, original); restoreErr != nil {
					slog.Error("could not restore day file after failed move", "path", oldPath, "id", e.ID, "err", restoreErr)
				}
				return model.TimeEntry{}, err
			}
			return updated, nil
		}
	}
	return model.TimeEntry{}, store.ErrNotFound
}

func (d *DB) loadTasks(userID string) ([]model.Task, error) {
	tasks := []model.Task{}
	if _, err := readJSON(d.tasksPath(userID), &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (d *DB) ListTasks(_ context.Context, userID string) ([]model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadTasks(userID)
}

func (d *DB) CreateTask(_ context.Context, userID, description string) (model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tasks, err := d.loadTasks(userID)
	if err != nil {
		return model.Task{}, err
	}
	t := store.NewTask(uuid.NewString(), userID, description, d.now())
	tasks = append(tasks, t)
	if err := d.write(d.tasksPath(userID), tasks); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (d *DB) UpdateTask(_ context.Context, userID string, upd model.TaskUpdate) (model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tasks, err := d.loadTasks(userID)
	if err != nil {
		return model.Task{}, err
	}
	for i, t := range tasks {
		if t.ID != upd.ID {
			continue
		}
		updated, err := store.ApplyTaskUpdate(t, upd)
		if err != nil {
			return model.Task{}, err
		}
		tasks[i] = updated
		return updated, d.write(d.tasksPath(userID), tasks)
	}
	return model.Task{}, store.ErrNotFound
}

func (d *DB) DeleteTask(_ context.Context, userID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tasks, err := d.loadTasks(userID)
	if err != nil {
		return err
	}
	for i, t := range tasks {
		if t.ID == id {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return d.write(d.tasksPath(userID), tasks)
		}
	}
	return store.ErrNotFound
}

func (d *DB) loadUsers() ([]model.User, error) {
	users := []model.User{}
	if _, err := readJSON(d.usersPath(), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (d *DB) CreateUser(_ context.Context, u model.User) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.loadUsers()
	if err != nil {
		return model.User{}, err
	}
	for _, existing := range users {
		if existing.Email == u.Email {
			return model.User{}, store.ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.now()
	}
	users = append(users, u)
	if err := d.write(d.usersPath(), users); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (d *DB) findUser(match func(model.User) bool) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.loadUsers()
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (d *DB) UserByEmail(_ context.Context, email string) (model.User, error) {
	return d.findUser(func(u model.User) bool { return u.Email == email })
}

func (d *DB) UserByToken(_ context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, store.ErrUnauthorized
	}
	u, err := d.findUser(func(u model.User) bool { return u.Token == token })
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, store.ErrUnauthorized
	}
	return u, err
}
