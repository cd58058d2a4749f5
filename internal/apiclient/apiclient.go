// Package apiclient talks to a remote tp serve instance. It implements
// store.Repository and planner.Generator so the CLI can use either the
// local store or a server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/planner"
	"github.com/Tiliavir/timeplan/internal/store"
)

// Client is an authenticated client of the HTTP data service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var (
	_ store.Repository  = (*Client)(nil)
	_ planner.Generator = (*Client)(nil)
)

// New creates a client for baseURL using token as bearer token. An empty
// token is allowed for Signup only.
func New(ctx context.Context, baseURL, token string) *Client {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// ErrRejected matches every 4xx response: the service refused the request
// because of its input or the user's data, not because it failed.
var ErrRejected = errors.New("request rejected by data service")

// Error is a non-2xx response. Its text is the server's message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is maps the status code to store sentinels. Within a status class the
// message picks the specific sentinel, since the server renders wrapped errors.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	switch {
	case target == ErrRejected:
		return e.Status >= 400 && e.Status < 500
	case errors.Is(target, store.ErrNotFound):
		return e.Status == http.StatusNotFound
	case errors.Is(target, store.ErrUnauthorized):
		return e.Status == http.StatusUnauthorized
	}
	switch e.Status {
	case http.StatusBadRequest, http.StatusConflict:
		return strings.Contains(e.Message, target.Error())
	}
	return false
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Token string          `json:"token"`
	Error string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (envelope, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return envelope{}, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return envelope{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("data service request failed: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return envelope{}, fmt.Errorf("reading response body: %w", err)
	}

	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil && resp.StatusCode < 300 {
			return envelope{}, fmt.Errorf("decoding response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return envelope{}, &Error{Status: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return envelope{}, fmt.Errorf("decoding response data: %w", err)
		}
	}
	return env, nil
}

// Signup registers email and returns the user with its API token.
func (c *Client) Signup(ctx context.Context, email string) (model.User, error) {
	var u model.User
	env, err := c.do(ctx, http.MethodPost, "/api/v1/signup", map[string]string{"email": email}, &u)
	if err != nil {
		return model.User{}, err
	}
	u.Token = env.Token
	return u, nil
}

func (c *Client) ListTimeEntries(ctx context.Context) ([]model.TimeEntry, error) {
	var out []model.TimeEntry
	_, err := c.do(ctx, http.MethodGet, "/api/v1/time-entries", nil, &out)
	return out, err
}

func (c *Client) CreateTimeEntry(ctx context.Context, in model.NewTimeEntry) (model.TimeEntry, error) {
	var out model.TimeEntry
	_, err := c.do(ctx, http.MethodPost, "/api/v1/time-entries", in, &out)
	return out, err
}

func (c *Client) UpdateTimeEntry(ctx context.Context, upd model.EntryUpdate) (model.TimeEntry, error) {
	var out model.TimeEntry
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/time-entries/"+url.PathEscape(upd.ID), upd, &out)
	return out, err
}

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	_, err := c.do(ctx, http.MethodGet, "/api/v1/tasks", nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, description string) (model.Task, error) {
	var out model.Task
	_, err := c.do(ctx, http.MethodPost, "/api/v1/tasks", map[string]string{"description": description}, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, upd model.TaskUpdate) (model.Task, error) {
	var out model.Task
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/tasks/"+url.PathEscape(upd.ID), upd, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+url.PathEscape(id), nil, nil)
	return err
}

// GeneratePlan asks the server to plan the user's open tasks.
func (c *Client) GeneratePlan(ctx context.Context, hours float64) (string, error) {
	var out string
	_, err := c.do(ctx, http.MethodPost, "/api/v1/plan", map[string]float64{"hours": hours}, &out)
	return out, err
}
