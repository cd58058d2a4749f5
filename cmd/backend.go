package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Tiliavir/timeplan/internal/apiclient"
	"github.com/Tiliavir/timeplan/internal/auth"
	"github.com/Tiliavir/timeplan/internal/config"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/planner"
	"github.com/Tiliavir/timeplan/internal/store"
	"github.com/Tiliavir/timeplan/internal/store/bolt"
	"github.com/Tiliavir/timeplan/internal/store/file"
)

// backend is the data service as seen by one CLI invocation.
type backend struct {
	repo      store.Repository
	generator planner.Generator
	close     func() error
}

func (b *backend) Close() {
	if b.close != nil {
		_ = b.close()
	}
}

// openDB opens the configured local store.
func openDB(c config.Config) (store.DB, error) {
	if c.Store.Driver == config.DriverFile {
		db, err := file.Open(filepath.Join(c.DataDir, "data"))
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	db, err := bolt.Open(filepath.Join(c.DataDir, "timeplan.db"))
	if err != nil {
		return nil, err
	}
	return db, nil
}

// newCompleter returns the chat client for plan generation, or nil when no
// API key is configured.
func newCompleter(ctx context.Context, c config.Config) planner.Completer {
	if c.Planner.APIKey == "" {
		return nil
	}
	return planner.NewClient(ctx, c.Planner.BaseURL, c.Planner.Model, c.Planner.APIKey)
}

// openBackend connects to the configured server, or opens the local store
// bound to the configured local user.
func openBackend(ctx context.Context) (*backend, error) {
	if cfg.Remote() {
		if cfg.Server.Token == "" {
			return nil, usageErrorf("server.token is not set: run tp signup <email> and store the printed token")
		}
		client := apiclient.New(ctx, cfg.Server.URL, cfg.Server.Token)
		return &backend{repo: client, generator: client}, nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, storageErr(err)
	}
	user, err := ensureLocalUser(ctx, db, cfg.User.Email)
	if err != nil {
		_ = db.Close()
		return nil, storageErr(err)
	}

	b := &backend{repo: store.ForUser(db, user.ID), close: db.Close}
	if completer := newCompleter(ctx, cfg); completer != nil {
		b.generator = planner.NewService(b.repo, completer)
	}
	return b, nil
}

// ensureLocalUser returns the user for email, creating it on first use.
func ensureLocalUser(ctx context.Context, db store.DB, email string) (model.User, error) {
	u, err := db.UserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, fmt.Errorf("looking up local user: %w", err)
	}
	return createUser(ctx, db, email)
}

func createUser(ctx context.Context, db store.DB, email string) (model.User, error) {
	fields := auth.DeriveSignupFields(email, auth.ParseAdminEmails(cfg.AdminEmails))
	return db.CreateUser(ctx, model.User{
		Email:    email,
		Username: fields.Username,
		IsAdmin:  fields.IsAdmin,
		Token:    auth.NewToken(),
	})
}
