// Package schedule contains the pure business logic for message schedules.
package schedule

import (
	"fmt"
	"time"

	"github.com/example/atelier/internal/models"
)

// FireResult describes what a fire callback should do.
type FireResult struct {
	Enqueue      bool
	SetCompleted bool // one-shot schedules complete after their single fire
	Reason       string
}

// EvaluateFire decides whether a fire callback produces a message.
// A disabled or completed schedule never fires; the contract with the
// external crontab service is exactly one enqueue per fire callback,
// so an eligible schedule always enqueues exactly once.
func EvaluateFire(s *models.MessageSchedule) FireResult {
	if s.DeletedAt != nil {
		return FireResult{Reason: fmt.Sprintf("schedule %s is deleted", s.ID)}
	}
	if !s.Enabled {
		return FireResult{Reason: fmt.Sprintf("schedule %s is disabled", s.ID)}
	}
	if s.Completed {
		return FireResult{Reason: fmt.Sprintf("schedule %s is already completed", s.ID)}
	}
	return FireResult{
		Enqueue:      true,
		SetCompleted: s.OneShot,
	}
}

// ValidateTimeSpec checks the stored time specification. Cron parsing and
// firing belong to the external crontab service; locally we only reject
// specs that cannot possibly be registered there.
func ValidateTimeSpec(timeSpec string, oneShot bool) error {
	if timeSpec == "" {
		return fmt.Errorf("time spec must not be empty")
	}
	if oneShot {
		if _, err := time.Parse(time.RFC3339, timeSpec); err != nil {
			return fmt.Errorf("one-shot time spec must be RFC3339: %w", err)
		}
	}
	return nil
}
