// Package planner turns the open task list into a generated schedule for the
// day. Generation is a single remote call; nothing is retried.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
	"github.com/Tiliavir/timeplan/internal/tasks"
)

const (
	MinHours     = 1.0
	MaxHours     = 24.0
	DefaultHours = 8.0
)

var (
	ErrNoTasks      = errors.New("no open tasks to plan")
	ErrInFlight     = errors.New("a schedule is already being generated")
	ErrInvalidHours = errors.New("hours available must be between 1 and 24 in steps of 0.5")
)

// Generator produces a JSON-encoded schedule for the given hours.
type Generator interface {
	GeneratePlan(ctx context.Context, hours float64) (string, error)
}

// Completer asks a language model for a schedule covering taskList.
type Completer interface {
	Complete(ctx context.Context, hours float64, taskList []model.Task) (string, error)
}

// ValidateHours checks the hours-available input.
func ValidateHours(h float64) error {
	if math.IsNaN(h) || h < MinHours || h > MaxHours || math.Mod(h*2, 1) != 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidHours, h)
	}
	return nil
}

// Service generates plans from a user's stored tasks.
type Service struct {
	tasks     store.TaskRepository
	completer Completer
}

var _ Generator = (*Service)(nil)

func NewService(taskRepo store.TaskRepository, c Completer) *Service {
	return &Service{tasks: taskRepo, completer: c}
}

// GeneratePlan plans the open tasks. Done tasks are left out.
func (s *Service) GeneratePlan(ctx context.Context, hours float64) (string, error) {
	if err := ValidateHours(hours); err != nil {
		return "", err
	}
	list, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return "", fmt.Errorf("loading tasks: %w", err)
	}
	open := tasks.Open(list)
	if len(open) == 0 {
		return "", ErrNoTasks
	}
	return s.completer.Complete(ctx, hours, open)
}

// ParseSchedule decodes a generated schedule and checks priorities and times.
func ParseSchedule(raw string) (model.Schedule, error) {
	var s model.Schedule
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return model.Schedule{}, fmt.Errorf("decoding schedule: %w", err)
	}
	for _, t := range s.Tasks {
		if !t.Priority.Valid() {
			return model.Schedule{}, fmt.Errorf("decoding schedule: task %q has unknown priority %q", t.Name, t.Priority)
		}
		for _, item := range append(append([]model.ScheduleItem{}, t.Subtasks...), t.Breaks...) {
			if item.Time < 0 || math.IsNaN(item.Time) {
				return model.Schedule{}, fmt.Errorf("decoding schedule: %q has negative time", item.Description)
			}
		}
	}
	if s.Tasks == nil {
		s.Tasks = []model.PlannedTask{}
	}
	return s, nil
}

// Session is the transient plan view: at most one request in flight and the
// last successful schedule.
type Session struct {
	gen Generator

	mu       sync.Mutex
	inFlight bool
	schedule *model.Schedule
}

func NewSession(gen Generator) *Session {
	return &Session{gen: gen}
}

// CanGenerate reports whether the generate trigger is enabled.
func (s *Session) CanGenerate(taskCount int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return taskCount > 0 && !s.inFlight
}

// InFlight reports whether a request is running.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Generate requests a new schedule. The previous schedule is discarded
// whether or not the request succeeds.
func (s *Session) Generate(ctx context.Context, hours float64) (model.Schedule, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return model.Schedule{}, ErrInFlight
	}
	s.inFlight = true
	s.schedule = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	raw, err := s.gen.GeneratePlan(ctx, hours)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("generating schedule: %w", err)
	}
	sched, err := ParseSchedule(raw)
	if err != nil {
		return model.Schedule{}, err
	}

	s.mu.Lock()
	s.schedule = &sched
	s.mu.Unlock()
	return sched, nil
}

// Schedule returns the last generated schedule, if any.
func (s *Session) Schedule() (model.Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return model.Schedule{}, false
	}
	return *s.schedule, true
}
