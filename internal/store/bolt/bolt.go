// Package bolt is the bbolt-backed implementation of store.DB.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
)

const (
	bucketUsers      = "users"       // key: user ID -> User JSON
	bucketUserEmails = "user_emails" // key: email -> user ID
	bucketUserTokens = "user_tokens" // key: API token -> user ID
	bucketEntries    = "entries"     // key: userID/entryID -> TimeEntry JSON
	bucketTasks      = "tasks"       // key: userID/taskID -> Task JSON
)

var buckets = []string{bucketUsers, bucketUserEmails, bucketUserTokens, bucketEntries, bucketTasks}

// DB stores everything in a single bbolt file.
type DB struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ store.DB = (*DB)(nil)

// Open opens or creates the database at path and ensures all buckets exist.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, now: time.Now}, nil
}

// Close releases the database file lock.
func (b *DB) Close() error {
	return b.db.Close()
}

func scopedKey(userID, id string) []byte {
	return []byte(userID + "/" + id)
}

func (b *DB) CreateUser(_ context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = b.now()
	}
	data, err := json.Marshal(&u)
	if err != nil {
		return model.User{}, err
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket([]byte(bucketUserEmails))
		if emails.Get([]byte(u.Email)) != nil {
			return store.ErrEmailTaken
		}
		if err := tx.Bucket([]byte(bucketUsers)).Put([]byte(u.ID), data); err != nil {
			return err
		}
		if err := emails.Put([]byte(u.Email), []byte(u.ID)); err != nil {
			return err
		}
		if u.Token != "" {
			return tx.Bucket([]byte(bucketUserTokens)).Put([]byte(u.Token), []byte(u.ID))
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (b *DB) UserByEmail(_ context.Context, email string) (model.User, error) {
	return b.userByIndex(bucketUserEmails, email)
}

func (b *DB) UserByToken(_ context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, store.ErrUnauthorized
	}
	u, err := b.userByIndex(bucketUserTokens, token)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, store.ErrUnauthorized
	}
	return u, err
}

func (b *DB) userByIndex(index, key string) (model.User, error) {
	var u model.User
	err := b.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(index)).Get([]byte(key))
		if id == nil {
			return store.ErrNotFound
		}
		data := tx.Bucket([]byte(bucketUsers)).Get(id)
		if data == nil {
			return store.ErrNotFound
		}
		return json.Unmarshal(data, &u)
	})
	return u, err
}

// forEachOwned calls fn for every value in bucket whose key belongs to userID.
func forEachOwned(tx *bbolt.Tx, bucket, userID string, fn func(v []byte) error) error {
	prefix := []byte(userID + "/")
	c := tx.Bucket([]byte(bucket)).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func listEntries(tx *bbolt.Tx, userID string) ([]model.TimeEntry, error) {
	out := []model.TimeEntry{}
	err := forEachOwned(tx, bucketEntries, userID, func(v []byte) error {
		var e model.TimeEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func (b *DB) ListTimeEntries(_ context.Context, userID string) ([]model.TimeEntry, error) {
	var out []model.TimeEntry
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = listEntries(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (b *DB) CreateTimeEntry(_ context.Context, userID string, in model.NewTimeEntry) (model.TimeEntry, error) {
	e := model.TimeEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: in.Description,
		Start:       in.Start,
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		existing, err := listEntries(tx, userID)
		if err != nil {
			return err
		}
		if store.HasRunning(existing) {
			return store.ErrAlreadyRunning
		}
		data, err := json.Marshal(&e)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketEntries)).Put(scopedKey(userID, e.ID), data)
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}

func (b *DB) UpdateTimeEntry(_ context.Context, userID string, upd model.EntryUpdate) (model.TimeEntry, error) {
	var updated model.TimeEntry
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketEntries))
		key := scopedKey(userID, upd.ID)
		data := bucket.Get(key)
		if data == nil {
			return store.ErrNotFound
		}
		var e model.TimeEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		var err error
		if updated, err = store.ApplyEntryUpdate(e, upd); err != nil {
			return err
		}
		out, err := json.Marshal(&updated)
		if err != nil {
			return err
		}
		return bucket.Put(key, out)
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	return updated, nil
}

func (b *DB) ListTasks(_ context.Context, userID string) ([]model.Task, error) {
	out := []model.Task{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		return forEachOwned(tx, bucketTasks, userID, func(v []byte) error {
			var t model.Task
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			out = append(out, t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (b *DB) CreateTask(_ context.Context, userID, description string) (model.Task, error) {
	t := store.NewTask(uuid.NewString(), userID, description, b.now())
	data, err := json.Marshal(&t)
	if err != nil {
		return model.Task{}, err
	}
	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketTasks)).Put(scopedKey(userID, t.ID), data)
	})
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (b *DB) UpdateTask(_ context.Context, userID string, upd model.TaskUpdate) (model.Task, error) {
	var updated model.Task
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketTasks))
		key := scopedKey(userID, upd.ID)
		data := bucket.Get(key)
		if data == nil {
			return store.ErrNotFound
		}
		var t model.Task
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		var err error
		if updated, err = store.ApplyTaskUpdate(t, upd); err != nil {
			return err
		}
		out, err := json.Marshal(&updated)
		if err != nil {
			return err
		}
		return bucket.Put(key, out)
	})
	if err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

func (b *DB) DeleteTask(_ context.Context, userID, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketTasks))
		key := scopedKey(userID, id)
		if bucket.Get(key) == nil {
			return store.ErrNotFound
		}
		return bucket.Delete(key)
	})
}
