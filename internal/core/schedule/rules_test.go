package schedule

import (
	"testing"
	"time"

	"github.com/example/atelier/internal/models"
)

func TestEvaluateFire(t *testing.T) {
	deleted := time.Now()

	tests := []struct {
		name          string
		schedule      *models.MessageSchedule
		wantEnqueue   bool
		wantCompleted bool
	}{
		{
			name:        "enabled recurring schedule fires",
			schedule:    &models.MessageSchedule{ID: "SCHED-000001", Enabled: true},
			wantEnqueue: true,
		},
		{
			name:          "enabled one-shot fires and completes",
			schedule:      &models.MessageSchedule{ID: "SCHED-000001", Enabled: true, OneShot: true},
			wantEnqueue:   true,
			wantCompleted: true,
		},
		{
			name:     "disabled schedule never fires",
			schedule: &models.MessageSchedule{ID: "SCHED-000001", Enabled: false},
		},
		{
			name:     "completed schedule never fires again",
			schedule: &models.MessageSchedule{ID: "SCHED-000001", Enabled: true, Completed: true},
		},
		{
			name:     "deleted schedule never fires",
			schedule: &models.MessageSchedule{ID: "SCHED-000001", Enabled: true, DeletedAt: &deleted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EvaluateFire(tt.schedule)
			if result.Enqueue != tt.wantEnqueue {
				t.Errorf("Enqueue = %v, want %v (%s)", result.Enqueue, tt.wantEnqueue, result.Reason)
			}
			if result.SetCompleted != tt.wantCompleted {
				t.Errorf("SetCompleted = %v, want %v", result.SetCompleted, tt.wantCompleted)
			}
		})
	}
}

func TestValidateTimeSpec(t *testing.T) {
	if err := ValidateTimeSpec("0 9 * * 1", false); err != nil {
		t.Errorf("cron spec rejected: %v", err)
	}
	if err := ValidateTimeSpec("2026-03-01T09:00:00Z", true); err != nil {
		t.Errorf("RFC3339 one-shot rejected: %v", err)
	}
	if err := ValidateTimeSpec("", false); err == nil {
		t.Error("empty spec accepted")
	}
	if err := ValidateTimeSpec("tomorrow at nine", true); err == nil {
		t.Error("non-RFC3339 one-shot accepted")
	}
}
