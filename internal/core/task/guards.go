package task

import (
	"fmt"

	"github.com/example/atelier/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CreateTaskContext provides context for task creation guards.
// All values are pre-fetched by the caller - no I/O in guards.
type CreateTaskContext struct {
	TopicID           string
	TopicExists       bool
	CurrentTaskID     string            // topic's active task, empty if none
	CurrentTaskStatus models.TaskStatus // only meaningful when CurrentTaskID != ""
}

// CanCreateTask evaluates whether a new task may be created for a topic.
// Rules:
// - Topic must exist
// - Topic must not already own a non-terminal task (single-flight)
func CanCreateTask(ctx CreateTaskContext) GuardResult {
	if !ctx.TopicExists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("topic %s not found", ctx.TopicID),
		}
	}

	if ctx.CurrentTaskID != "" && !ctx.CurrentTaskStatus.IsTerminal() {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("topic %s already has active task %s (status: %s)",
				ctx.TopicID, ctx.CurrentTaskID, ctx.CurrentTaskStatus),
		}
	}

	return GuardResult{Allowed: true}
}
