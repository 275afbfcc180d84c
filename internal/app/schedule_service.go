package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/atelier/internal/core/schedule"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// ScheduleServiceImpl implements the ScheduleService interface. Firing is
// owned by the external crontab service; this side registers triggers,
// consumes fire callbacks, and turns eligible fires into queued messages.
type ScheduleServiceImpl struct {
	scheduleRepo secondary.ScheduleRepository
	queueService primary.QueueService
	crontab      secondary.CrontabClient
	logWriter    secondary.LogWriter
}

// NewScheduleService creates a new ScheduleService with injected dependencies.
func NewScheduleService(
	scheduleRepo secondary.ScheduleRepository,
	queueService primary.QueueService,
	crontab secondary.CrontabClient,
	logWriter secondary.LogWriter,
) *ScheduleServiceImpl {
	return &ScheduleServiceImpl{
		scheduleRepo: scheduleRepo,
		queueService: queueService,
		crontab:      crontab,
		logWriter:    logWriter,
	}
}

// CreateSchedule creates a schedule and registers its trigger with the
// external crontab service. A schedule whose trigger cannot be
// registered is not kept: it would never fire.
func (s *ScheduleServiceImpl) CreateSchedule(ctx context.Context, req primary.CreateScheduleRequest) (*models.MessageSchedule, error) {
	if err := schedule.ValidateTimeSpec(req.TimeSpec, req.OneShot); err != nil {
		return nil, err
	}

	nextID, err := s.scheduleRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedule ID: %w", err)
	}

	record := &secondary.ScheduleRecord{
		ID:          nextID,
		UserID:      req.UserID,
		TopicID:     req.TopicID,
		ProjectID:   req.ProjectID,
		WorkspaceID: req.WorkspaceID,
		Payload:     req.Payload,
		TimeSpec:    req.TimeSpec,
		OneShot:     req.OneShot,
		Enabled:     true,
	}
	if err := s.scheduleRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	triggerID, err := s.crontab.RegisterTrigger(ctx, secondary.RegisterTriggerRequest{
		ScheduleID: nextID,
		TimeSpec:   req.TimeSpec,
		OneShot:    req.OneShot,
	})
	if err != nil {
		_ = s.scheduleRepo.SoftDelete(ctx, nextID)
		return nil, fmt.Errorf("failed to register crontab trigger: %w", err)
	}
	if err := s.scheduleRepo.SetCrontabTriggerID(ctx, nextID, triggerID); err != nil {
		return nil, fmt.Errorf("failed to store trigger id: %w", err)
	}

	_ = s.logWriter.LogCreate(ctx, "schedule", nextID)

	created, err := s.scheduleRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created schedule: %w", err)
	}
	return recordToSchedule(created), nil
}

// GetSchedule retrieves a schedule by ID.
func (s *ScheduleServiceImpl) GetSchedule(ctx context.Context, scheduleID string) (*models.MessageSchedule, error) {
	record, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return recordToSchedule(record), nil
}

// UpdateSchedule updates payload, time spec and enabled flag,
// re-registering the external trigger when the time spec changed.
func (s *ScheduleServiceImpl) UpdateSchedule(ctx context.Context, req primary.UpdateScheduleRequest) (*models.MessageSchedule, error) {
	record, err := s.scheduleRepo.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if record.Completed {
		return nil, fmt.Errorf("schedule %s is already completed", req.ScheduleID)
	}
	if err := schedule.ValidateTimeSpec(req.TimeSpec, record.OneShot); err != nil {
		return nil, err
	}

	oldSpec := record.TimeSpec
	specChanged := oldSpec != req.TimeSpec

	record.Payload = req.Payload
	record.TimeSpec = req.TimeSpec
	record.Enabled = req.Enabled
	if err := s.scheduleRepo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	if specChanged {
		if record.CrontabTriggerID != "" {
			if err := s.crontab.UnregisterTrigger(ctx, record.CrontabTriggerID); err != nil {
				log.Printf("schedule: failed to unregister stale trigger %s: %v", record.CrontabTriggerID, err)
			}
		}
		triggerID, err := s.crontab.RegisterTrigger(ctx, secondary.RegisterTriggerRequest{
			ScheduleID: record.ID,
			TimeSpec:   req.TimeSpec,
			OneShot:    record.OneShot,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to re-register crontab trigger: %w", err)
		}
		if err := s.scheduleRepo.SetCrontabTriggerID(ctx, record.ID, triggerID); err != nil {
			return nil, fmt.Errorf("failed to store trigger id: %w", err)
		}
	}

	_ = s.logWriter.LogUpdate(ctx, "schedule", record.ID, "time_spec", oldSpec, req.TimeSpec)

	updated, err := s.scheduleRepo.GetByID(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch updated schedule: %w", err)
	}
	return recordToSchedule(updated), nil
}

// DeleteSchedule soft-deletes a schedule and unregisters its trigger.
// Trigger removal is best-effort: a fire for a deleted schedule is
// ignored by FireSchedule anyway.
func (s *ScheduleServiceImpl) DeleteSchedule(ctx context.Context, scheduleID string) error {
	record, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		return err
	}

	if err := s.scheduleRepo.SoftDelete(ctx, scheduleID); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if record.CrontabTriggerID != "" {
		if err := s.crontab.UnregisterTrigger(ctx, record.CrontabTriggerID); err != nil {
			log.Printf("schedule: failed to unregister trigger %s: %v", record.CrontabTriggerID, err)
		}
	}

	_ = s.logWriter.LogDelete(ctx, "schedule", scheduleID)
	return nil
}

// FireSchedule is the inbound callback from the external crontab
// service. An eligible fire enqueues exactly one message; one-shot
// schedules complete after firing. Fires for deleted, disabled or
// completed schedules are ignored.
func (s *ScheduleServiceImpl) FireSchedule(ctx context.Context, scheduleID string) error {
	record, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil // late fire for a deleted schedule
		}
		return fmt.Errorf("failed to load schedule: %w", err)
	}

	result := schedule.EvaluateFire(recordToSchedule(record))
	if !result.Enqueue {
		log.Printf("schedule: ignoring fire for %s: %s", scheduleID, result.Reason)
		return nil
	}

	if _, err := s.queueService.Enqueue(ctx, primary.EnqueueRequest{
		TopicID:   record.TopicID,
		ProjectID: record.ProjectID,
		UserID:    record.UserID,
		Payload:   record.Payload,
	}); err != nil {
		return fmt.Errorf("failed to enqueue scheduled message: %w", err)
	}

	if result.SetCompleted {
		if err := s.scheduleRepo.SetCompleted(ctx, scheduleID); err != nil {
			return fmt.Errorf("failed to complete one-shot schedule: %w", err)
		}
		if record.CrontabTriggerID != "" {
			if err := s.crontab.UnregisterTrigger(ctx, record.CrontabTriggerID); err != nil {
				log.Printf("schedule: failed to unregister fired trigger %s: %v", record.CrontabTriggerID, err)
			}
		}
		_ = s.logWriter.LogUpdate(ctx, "schedule", scheduleID, "completed", "false", "true")
	}
	return nil
}

// ListEnabled lists enabled, not-completed schedules for a user.
func (s *ScheduleServiceImpl) ListEnabled(ctx context.Context, userID string) ([]*models.MessageSchedule, error) {
	records, err := s.scheduleRepo.ListEnabled(ctx, userID)
	if err != nil {
		return nil, err
	}

	schedules := make([]*models.MessageSchedule, 0, len(records))
	for _, r := range records {
		schedules = append(schedules, recordToSchedule(r))
	}
	return schedules, nil
}
