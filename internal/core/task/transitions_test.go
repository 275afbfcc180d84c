package task

import (
	"errors"
	"testing"
	"time"

	"github.com/example/atelier/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from models.TaskStatus
		to   models.TaskStatus
		want bool
	}{
		{"pending to running", models.TaskStatusPending, models.TaskStatusRunning, true},
		{"running to finished", models.TaskStatusRunning, models.TaskStatusFinished, true},
		{"running to error", models.TaskStatusRunning, models.TaskStatusError, true},
		{"pending to error", models.TaskStatusPending, models.TaskStatusError, true},
		{"pending to finished", models.TaskStatusPending, models.TaskStatusFinished, false},
		{"running to pending", models.TaskStatusRunning, models.TaskStatusPending, false},
		{"error to running", models.TaskStatusError, models.TaskStatusRunning, false},
		{"error to error", models.TaskStatusError, models.TaskStatusError, false},
		{"finished to error", models.TaskStatusFinished, models.TaskStatusError, false},
		{"finished to running", models.TaskStatusFinished, models.TaskStatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestApplyTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	result, err := ApplyTransition("TASK-000001", models.TaskStatusPending, models.TaskStatusRunning, "", now)
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if result.NewStatus != models.TaskStatusRunning {
		t.Errorf("NewStatus = %s, want running", result.NewStatus)
	}
	if !result.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", result.UpdatedAt, now)
	}
}

func TestApplyTransitionToError(t *testing.T) {
	now := time.Now()

	result, err := ApplyTransition("TASK-000001", models.TaskStatusRunning, models.TaskStatusError, "sandbox crashed", now)
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if result.ErrMsg != "sandbox crashed" {
		t.Errorf("ErrMsg = %q, want 'sandbox crashed'", result.ErrMsg)
	}

	// Error without a message gets a default.
	result, err = ApplyTransition("TASK-000002", models.TaskStatusPending, models.TaskStatusError, "", now)
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if result.ErrMsg == "" {
		t.Error("expected default error message for error transition")
	}
}

func TestApplyTransitionRejectsTerminal(t *testing.T) {
	now := time.Now()

	_, err := ApplyTransition("TASK-000001", models.TaskStatusFinished, models.TaskStatusError, "", now)
	if err == nil {
		t.Fatal("expected error for transition out of terminal state")
	}

	var invalid *ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *ErrInvalidTransition, got %T", err)
	}
	if invalid.From != models.TaskStatusFinished || invalid.To != models.TaskStatusError {
		t.Errorf("unexpected transition in error: %s -> %s", invalid.From, invalid.To)
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threshold := time.Hour

	tests := []struct {
		name      string
		status    models.TaskStatus
		updatedAt time.Time
		want      bool
	}{
		{"running and old", models.TaskStatusRunning, now.Add(-2 * time.Hour), true},
		{"running and fresh", models.TaskStatusRunning, now.Add(-10 * time.Minute), false},
		{"running exactly at threshold", models.TaskStatusRunning, now.Add(-time.Hour), false},
		{"pending and old", models.TaskStatusPending, now.Add(-2 * time.Hour), false},
		{"finished and old", models.TaskStatusFinished, now.Add(-2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStale(tt.status, tt.updatedAt, now, threshold); got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}
