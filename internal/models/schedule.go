package models

import "time"

// MessageSchedule is a recurring or one-shot producer of QueuedMessages.
// The external crontab service owns the actual firing; CrontabTriggerID
// links back to the trigger registered there. A schedule with
// Enabled=false or Completed=true never produces new messages.
type MessageSchedule struct {
	ID               string
	UserID           string
	TopicID          string
	ProjectID        string
	WorkspaceID      string
	Payload          string
	TimeSpec         string // cron expression, or RFC3339 deadline for one-shots
	OneShot          bool
	Enabled          bool
	Completed        bool
	CrontabTriggerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}
