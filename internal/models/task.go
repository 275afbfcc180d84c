// Package models contains domain types for Atelier entities.
// SQL persistence lives in internal/adapters/sqlite/*.go.
package models

import "time"

// TaskStatus represents the lifecycle state of a sandbox execution attempt.
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusFinished TaskStatus = "finished"
	TaskStatusError    TaskStatus = "error"
)

// IsTerminal reports whether the status permits no further transitions.
// A retry after a terminal status creates a new Task, it never resurrects one.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusFinished || s == TaskStatusError
}

// Task represents one sandbox execution attempt.
// At most one Task per topic may be in a non-terminal status at a time.
type Task struct {
	ID            string
	TopicID       string
	ProjectID     string
	SandboxTaskID string
	Status        TaskStatus
	ErrMsg        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}
