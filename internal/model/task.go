package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultTaskHours is the estimate given to a task on creation.
const DefaultTaskHours = 1.0

// ErrInvalidHours is returned for task estimates below 0.5 or off the half-hour grid.
var ErrInvalidHours = errors.New("hours must be at least 0.5 and a multiple of 0.5")

// Task is a to-do item with a manual hour estimate.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Description string    `json:"description"`
	IsDone      bool      `json:"isDone"`
	Time        float64   `json:"time"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TaskUpdate toggles IsDone or replaces Time. Nil fields are left untouched.
type TaskUpdate struct {
	ID     string   `json:"id"`
	IsDone *bool    `json:"isDone,omitempty"`
	Time   *float64 `json:"time,omitempty"`
}

// ValidateTaskHours checks the 0.5 minimum and 0.5 step of a task estimate.
func ValidateTaskHours(h float64) error {
	if math.IsNaN(h) || h < 0.5 || math.Mod(h*2, 1) != 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidHours, h)
	}
	return nil
}
