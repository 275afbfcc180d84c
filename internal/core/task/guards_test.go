package task

import (
	"testing"

	"github.com/example/atelier/internal/models"
)

func TestCanCreateTask(t *testing.T) {
	tests := []struct {
		name        string
		ctx         CreateTaskContext
		wantAllowed bool
	}{
		{
			name: "topic with no current task",
			ctx: CreateTaskContext{
				TopicID:     "TOP-000001",
				TopicExists: true,
			},
			wantAllowed: true,
		},
		{
			name: "topic with finished current task",
			ctx: CreateTaskContext{
				TopicID:           "TOP-000001",
				TopicExists:       true,
				CurrentTaskID:     "TASK-000001",
				CurrentTaskStatus: models.TaskStatusFinished,
			},
			wantAllowed: true,
		},
		{
			name: "topic with errored current task",
			ctx: CreateTaskContext{
				TopicID:           "TOP-000001",
				TopicExists:       true,
				CurrentTaskID:     "TASK-000001",
				CurrentTaskStatus: models.TaskStatusError,
			},
			wantAllowed: true,
		},
		{
			name: "topic not found",
			ctx: CreateTaskContext{
				TopicID:     "TOP-000999",
				TopicExists: false,
			},
			wantAllowed: false,
		},
		{
			name: "topic with running current task",
			ctx: CreateTaskContext{
				TopicID:           "TOP-000001",
				TopicExists:       true,
				CurrentTaskID:     "TASK-000002",
				CurrentTaskStatus: models.TaskStatusRunning,
			},
			wantAllowed: false,
		},
		{
			name: "topic with pending current task",
			ctx: CreateTaskContext{
				TopicID:           "TOP-000001",
				TopicExists:       true,
				CurrentTaskID:     "TASK-000002",
				CurrentTaskStatus: models.TaskStatusPending,
			},
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanCreateTask(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (reason: %s)", result.Allowed, tt.wantAllowed, result.Reason)
			}
			if tt.wantAllowed && result.Error() != nil {
				t.Errorf("Error() = %v, want nil", result.Error())
			}
			if !tt.wantAllowed && result.Error() == nil {
				t.Error("Error() = nil, want non-nil")
			}
		})
	}
}
