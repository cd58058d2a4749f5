package planner_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/planner"
)

const sampleSchedule = `{"schedule":[{"name":"Write report","priority":"high",` +
	`"subtasks":[{"description":"Outline","time":0.5},{"description":"Draft","time":1.5}],` +
	`"breaks":[{"description":"Walk","time":0.25}]}]}`

type fakeTasks struct{ list []model.Task }

func (f *fakeTasks) ListTasks(context.Context) ([]model.Task, error) { return f.list, nil }
func (f *fakeTasks) CreateTask(context.Context, string) (model.Task, error) {
	return model.Task{}, errors.New("unused")
}
func (f *fakeTasks) UpdateTask(context.Context, model.TaskUpdate) (model.Task, error) {
	return model.Task{}, errors.New("unused")
}
func (f *fakeTasks) DeleteTask(context.Context, string) error { return errors.New("unused") }

type recordingCompleter struct {
	got   []model.Task
	hours float64
}

func (r *recordingCompleter) Complete(_ context.Context, hours float64, taskList []model.Task) (string, error) {
	r.got = taskList
	r.hours = hours
	return sampleSchedule, nil
}

type generatorFunc func(ctx context.Context, hours float64) (string, error)

func (f generatorFunc) GeneratePlan(ctx context.Context, hours float64) (string, error) {
	return f(ctx, hours)
}

func TestValidateHours(t *testing.T) {
	for _, h := range []float64{1, 1.5, 8, 24} {
		assert.NoError(t, planner.ValidateHours(h), "%v", h)
	}
	for _, h := range []float64{0, 0.5, 24.5, 7.25, -1} {
		assert.ErrorIs(t, planner.ValidateHours(h), planner.ErrInvalidHours, "%v", h)
	}
}

func TestServiceDropsDoneTasks(t *testing.T) {
	repo := &fakeTasks{list: []model.Task{
		{ID: "a", Description: "report", Time: 2},
		{ID: "b", Description: "done already", Time: 1, IsDone: true},
	}}
	c := &recordingCompleter{}
	svc := planner.NewService(repo, c)

	raw, err := svc.GeneratePlan(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, sampleSchedule, raw)
	require.Len(t, c.got, 1)
	assert.Equal(t, "a", c.got[0].ID)
	assert.Equal(t, 8.0, c.hours)
}

func TestServiceNoOpenTasks(t *testing.T) {
	repo := &fakeTasks{list: []model.Task{{ID: "b", IsDone: true}}}
	svc := planner.NewService(repo, &recordingCompleter{})

	_, err := svc.GeneratePlan(context.Background(), 8)
	assert.ErrorIs(t, err, planner.ErrNoTasks)

	_, err = svc.GeneratePlan(context.Background(), 30)
	assert.ErrorIs(t, err, planner.ErrInvalidHours)
}

func TestParseSchedule(t *testing.T) {
	s, err := planner.ParseSchedule(sampleSchedule)
	require.NoError(t, err)
	require.Len(t, s.Tasks, 1)
	assert.Equal(t, model.PriorityHigh, s.Tasks[0].Priority)
	assert.Len(t, s.Tasks[0].Subtasks, 2)
	assert.Equal(t, 0.25, s.Tasks[0].Breaks[0].Time)

	_, err = planner.ParseSchedule(`{"schedule":[{"name":"x","priority":"urgent"}]}`)
	assert.Error(t, err)

	_, err = planner.ParseSchedule(`{"schedule":[{"name":"x","priority":"low","breaks":[{"description":"b","time":-1}]}]}`)
	assert.Error(t, err)

	_, err = planner.ParseSchedule(`not json`)
	assert.Error(t, err)

	empty, err := planner.ParseSchedule(`{}`)
	require.NoError(t, err)
	assert.NotNil(t, empty.Tasks)
}

func TestSessionGating(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gen := generatorFunc(func(ctx context.Context, hours float64) (string, error) {
		close(entered)
		<-release
		return sampleSchedule, nil
	})
	s := planner.NewSession(gen)

	assert.False(t, s.CanGenerate(0))
	assert.True(t, s.CanGenerate(3))

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), 8)
		done <- err
	}()
	<-entered

	assert.False(t, s.CanGenerate(3))
	_, err := s.Generate(context.Background(), 8)
	assert.ErrorIs(t, err, planner.ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, s.CanGenerate(3))

	sched, ok := s.Schedule()
	require.True(t, ok)
	assert.Equal(t, "Write report", sched.Tasks[0].Name)
}

func TestSessionFailureDiscardsSchedule(t *testing.T) {
	fail := false
	gen := generatorFunc(func(context.Context, float64) (string, error) {
		if fail {
			return `{"schedule":[{"name":"partial","priority":"nope"}]}`, nil
		}
		return sampleSchedule, nil
	})
	s := planner.NewSession(gen)

	_, err := s.Generate(context.Background(), 8)
	require.NoError(t, err)

	fail = true
	_, err = s.Generate(context.Background(), 8)
	assert.Error(t, err)
	_, ok := s.Schedule()
	assert.False(t, ok)
	assert.False(t, s.InFlight())
}

func TestClientComplete(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		resp := map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{
					"tool_calls": []any{map[string]any{
						"function": map[string]any{"name": "parseTodaysSchedule", "arguments": sampleSchedule},
					}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := planner.NewClient(context.Background(), srv.URL+"/v1/", "test-model", "sk-test")
	raw, err := c.Complete(context.Background(), 6.5, []model.Task{{Description: "write report", Time: 1.5}})
	require.NoError(t, err)
	assert.Equal(t, sampleSchedule, raw)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "test-model", gotReq["model"])

	msgs, ok := gotReq["messages"].([]any)
	require.True(t, ok)
	user := msgs[len(msgs)-1].(map[string]any)["content"].(string)
	assert.True(t, strings.Contains(user, "6hr 30min"), user)
	assert.True(t, strings.Contains(user, "write report (1hr 30min)"), user)
}

func TestClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := planner.NewClient(context.Background(), srv.URL, "", "sk-test")
	_, err := c.Complete(context.Background(), 8, []model.Task{{Description: "x", Time: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Contains(t, err.Error(), "429")
}
