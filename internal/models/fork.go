package models

import "time"

// ForkStatus represents the state of a fork job. Forks are created
// already running; there is no pending state.
type ForkStatus string

const (
	ForkStatusRunning  ForkStatus = "running"
	ForkStatusFinished ForkStatus = "finished"
	ForkStatusFailed   ForkStatus = "failed"
)

// ProjectFork is one asynchronous project-copy job. CurrentFileID is the
// resume cursor: the last source file fully copied and checkpointed, so a
// restart re-reads from just after it instead of from the beginning.
type ProjectFork struct {
	ID              string
	SourceProjectID string
	ForkProjectID   string
	WorkspaceID     string
	UserID          string
	Status          ForkStatus
	Progress        int
	TotalFiles      int
	ProcessedFiles  int
	CurrentFileID   string
	ErrMsg          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
