package model

// Priority of a planned task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Schedule is a generated plan for the day. It is never persisted.
type Schedule struct {
	Tasks []PlannedTask `json:"schedule"`
}

// PlannedTask is one main task of a generated schedule.
type PlannedTask struct {
	Name     string         `json:"name"`
	Priority Priority       `json:"priority"`
	Subtasks []ScheduleItem `json:"subtasks"`
	Breaks   []ScheduleItem `json:"breaks"`
}

// ScheduleItem is a subtask or break; Time is in hours.
type ScheduleItem struct {
	Description string  `json:"description"`
	Time        float64 `json:"time"`
}
