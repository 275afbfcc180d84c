package models

import "time"

// Topic is a conversation thread inside a project. It owns at most one
// active Task at a time; CurrentTaskStatus is a denormalized mirror of
// that Task's status, maintained by the task service on every transition.
type Topic struct {
	ID                string
	ProjectID         string
	UserID            string
	Title             string
	CurrentTaskID     string
	CurrentTaskStatus TaskStatus
	SandboxSessionID  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}
