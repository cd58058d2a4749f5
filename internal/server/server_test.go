package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/server"
	"github.com/Tiliavir/timeplan/internal/store/bolt"
)

type stubCompleter struct{ got []model.Task }

func (s *stubCompleter) Complete(_ context.Context, _ float64, taskList []model.Task) (string, error) {
	s.got = taskList
	return `{"schedule":[]}`, nil
}

func newTestServer(t *testing.T, completer *stubCompleter) *server.Server {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "timeplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := server.Config{AdminEmails: []string{"boss@example.com"}}
	if completer == nil {
		return server.New(cfg, db, nil)
	}
	return server.New(cfg, db, completer)
}

func call(t *testing.T, srv *server.Server, method, path, token string, body any) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func signup(t *testing.T, srv *server.Server, email string) (model.User, string) {
	t.Helper()
	status, body := call(t, srv, http.MethodPost, "/api/v1/signup", "", server.SignupRequest{Email: email})
	require.Equal(t, http.StatusCreated, status)
	var u model.User
	require.NoError(t, json.Unmarshal(body["data"], &u))
	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	return u, token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	status, body := call(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `"ok"`, string(body["status"]))
}

func TestSignup(t *testing.T) {
	srv := newTestServer(t, nil)

	boss, token := signup(t, srv, "boss@example.com")
	assert.True(t, boss.IsAdmin)
	assert.Equal(t, "boss@example.com", boss.Username)
	assert.Empty(t, boss.Token)
	assert.NotEmpty(t, token)

	dev, _ := signup(t, srv, "dev@example.com")
	assert.False(t, dev.IsAdmin)

	status, body := call(t, srv, http.MethodPost, "/api/v1/signup", "", server.SignupRequest{Email: "dev@example.com"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body["error"]), "already registered")

	status, _ = call(t, srv, http.MethodPost, "/api/v1/signup", "", server.SignupRequest{Email: " "})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil)
	status, _ := call(t, srv, http.MethodGet, "/api/v1/time-entries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, srv, http.MethodGet, "/api/v1/tasks", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTimeEntryFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	_, token := signup(t, srv, "ada@example.com")
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	status, body := call(t, srv, http.MethodPost, "/api/v1/time-entries", token, model.NewTimeEntry{Description: "focus", Start: start})
	require.Equal(t, http.StatusCreated, status)
	created := decode[model.TimeEntry](t, body["data"])
	assert.True(t, created.Running())

	status, _ = call(t, srv, http.MethodPost, "/api/v1/time-entries", token, model.NewTimeEntry{Start: start})
	assert.Equal(t, http.StatusConflict, status)

	early := start.Add(-time.Hour)
	status, _ = call(t, srv, http.MethodPatch, "/api/v1/time-entries/"+created.ID, token, model.EntryUpdate{Stop: &early})
	assert.Equal(t, http.StatusBadRequest, status)

	stop := start.Add(time.Hour)
	status, body = call(t, srv, http.MethodPatch, "/api/v1/time-entries/"+created.ID, token, model.EntryUpdate{Stop: &stop})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[model.TimeEntry](t, body["data"]).Running())

	status, _ = call(t, srv, http.MethodPatch, "/api/v1/time-entries/missing", token, model.EntryUpdate{Stop: &stop})
	assert.Equal(t, http.StatusNotFound, status)

	// Another user sees nothing.
	_, other := signup(t, srv, "bob@example.com")
	status, body = call(t, srv, http.MethodGet, "/api/v1/time-entries", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]model.TimeEntry](t, body["data"]))

	status, body = call(t, srv, http.MethodGet, "/api/v1/time-entries", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.TimeEntry](t, body["data"]), 1)
}

func TestTaskFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	_, token := signup(t, srv, "ada@example.com")

	status, _ := call(t, srv, http.MethodPost, "/api/v1/tasks", token, map[string]string{"description": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := call(t, srv, http.MethodPost, "/api/v1/tasks", token, map[string]string{"description": "write docs"})
	require.Equal(t, http.StatusCreated, status)
	task := decode[model.Task](t, body["data"])
	assert.Equal(t, model.DefaultTaskHours, task.Time)

	bad := 0.3
	status, _ = call(t, srv, http.MethodPatch, "/api/v1/tasks/"+task.ID, token, model.TaskUpdate{Time: &bad})
	assert.Equal(t, http.StatusBadRequest, status)

	done := true
	status, body = call(t, srv, http.MethodPatch, "/api/v1/tasks/"+task.ID, token, model.TaskUpdate{IsDone: &done})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[model.Task](t, body["data"]).IsDone)

	status, _ = call(t, srv, http.MethodDelete, "/api/v1/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, srv, http.MethodDelete, "/api/v1/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGeneratePlan(t *testing.T) {
	completer := &stubCompleter{}
	srv := newTestServer(t, completer)
	_, token := signup(t, srv, "ada@example.com")

	status, _ := call(t, srv, http.MethodPost, "/api/v1/plan", token, server.PlanRequest{Hours: 8})
	assert.Equal(t, http.StatusBadRequest, status, "no open tasks")

	call(t, srv, http.MethodPost, "/api/v1/tasks", token, map[string]string{"description": "write docs"})
	status, body := call(t, srv, http.MethodPost, "/api/v1/plan", token, server.PlanRequest{Hours: 8})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"schedule":[]}`, decode[string](t, body["data"]))
	require.Len(t, completer.got, 1)
	assert.Equal(t, "write docs", completer.got[0].Description)
}

func TestGeneratePlanNotConfigured(t *testing.T) {
	srv := newTestServer(t, nil)
	_, token := signup(t, srv, "ada@example.com")
	status, _ := call(t, srv, http.MethodPost, "/api/v1/plan", token, server.PlanRequest{Hours: 8})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
