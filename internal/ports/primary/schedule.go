package primary

import (
	"context"

	"github.com/example/atelier/internal/models"
)

// ScheduleService defines the primary port for message schedules.
type ScheduleService interface {
	// CreateSchedule creates a schedule and registers its trigger with
	// the external crontab service.
	CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*models.MessageSchedule, error)

	// GetSchedule retrieves a schedule by ID.
	GetSchedule(ctx context.Context, scheduleID string) (*models.MessageSchedule, error)

	// UpdateSchedule updates payload, time spec and enabled flag,
	// re-registering the external trigger when the time spec changed.
	UpdateSchedule(ctx context.Context, req UpdateScheduleRequest) (*models.MessageSchedule, error)

	// DeleteSchedule soft-deletes a schedule and unregisters its trigger.
	DeleteSchedule(ctx context.Context, scheduleID string) error

	// FireSchedule is the inbound callback from the external crontab
	// service: exactly one enqueue per eligible fire. One-shot
	// schedules complete after firing.
	FireSchedule(ctx context.Context, scheduleID string) error

	// ListEnabled lists enabled, not-completed schedules for a user.
	ListEnabled(ctx context.Context, userID string) ([]*models.MessageSchedule, error)
}

// CreateScheduleRequest contains parameters for creating a schedule.
type CreateScheduleRequest struct {
	UserID      string
	TopicID     string
	ProjectID   string
	WorkspaceID string
	Payload     string
	TimeSpec    string
	OneShot     bool
}

// UpdateScheduleRequest contains parameters for updating a schedule.
type UpdateScheduleRequest struct {
	ScheduleID string
	Payload    string
	TimeSpec   string
	Enabled    bool
}
