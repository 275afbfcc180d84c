// Package task contains the pure business logic for the task state machine.
// This is part of the Functional Core - no I/O, only pure functions.
package task

import (
	"fmt"
	"time"

	"github.com/example/atelier/internal/models"
)

// ErrInvalidTransition is returned when a requested status change violates
// the state machine. It is a contract error: callers must not retry it.
type ErrInvalidTransition struct {
	TaskID string
	From   models.TaskStatus
	To     models.TaskStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid task transition %s -> %s for task %s", e.From, e.To, e.TaskID)
}

// CanTransition reports whether from -> to is a legal status change.
// Allowed: pending -> running, running -> finished, running -> error, and
// any non-terminal status -> error. Terminal statuses permit nothing.
func CanTransition(from, to models.TaskStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case models.TaskStatusRunning:
		return from == models.TaskStatusPending
	case models.TaskStatusFinished:
		return from == models.TaskStatusRunning
	case models.TaskStatusError:
		return true // failure can be reported from any non-terminal state
	default:
		// No transition may re-enter pending.
		return false
	}
}

// TransitionResult captures the outcome of applying a status transition.
type TransitionResult struct {
	NewStatus models.TaskStatus
	ErrMsg    string
	UpdatedAt time.Time
}

// ApplyTransition validates and applies a status change, returning the
// resulting state or an *ErrInvalidTransition. The caller passes the
// current time to keep this testable.
func ApplyTransition(taskID string, from, to models.TaskStatus, errMsg string, now time.Time) (TransitionResult, error) {
	if !CanTransition(from, to) {
		return TransitionResult{}, &ErrInvalidTransition{TaskID: taskID, From: from, To: to}
	}

	result := TransitionResult{
		NewStatus: to,
		UpdatedAt: now,
	}
	if to == models.TaskStatusError {
		result.ErrMsg = errMsg
		if result.ErrMsg == "" {
			result.ErrMsg = "task failed"
		}
	}
	return result, nil
}

// InitialStatus returns the status for a newly created task.
func InitialStatus() models.TaskStatus {
	return models.TaskStatusPending
}

// IsStale reports whether a running task has gone without an update for
// longer than threshold. Only running tasks are ever reaped: a pending
// task still sits in the dispatch path and a terminal one is done.
func IsStale(status models.TaskStatus, updatedAt, now time.Time, threshold time.Duration) bool {
	if status != models.TaskStatusRunning {
		return false
	}
	return now.Sub(updatedAt) > threshold
}
