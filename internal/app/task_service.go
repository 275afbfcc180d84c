package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/atelier/internal/core/task"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// TaskServiceImpl implements the TaskService interface.
type TaskServiceImpl struct {
	taskRepo  secondary.TaskRepository
	topicRepo secondary.TopicRepository
	notifier  secondary.Notifier
	logWriter secondary.LogWriter
}

// NewTaskService creates a new TaskService with injected dependencies.
func NewTaskService(
	taskRepo secondary.TaskRepository,
	topicRepo secondary.TopicRepository,
	notifier secondary.Notifier,
	logWriter secondary.LogWriter,
) *TaskServiceImpl {
	return &TaskServiceImpl{
		taskRepo:  taskRepo,
		topicRepo: topicRepo,
		notifier:  notifier,
		logWriter: logWriter,
	}
}

// CreateTask creates a new pending task for a topic and claims the
// topic's current-task pointer. The conditional pointer update is the
// single-flight race breaker: when two creators race, exactly one task
// survives.
func (s *TaskServiceImpl) CreateTask(ctx context.Context, req primary.CreateTaskRequest) (*models.Task, error) {
	topic, err := s.topicRepo.GetByID(ctx, req.TopicID)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, fmt.Errorf("topic %s not found", req.TopicID)
		}
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}

	guard := task.CanCreateTask(task.CreateTaskContext{
		TopicID:           topic.ID,
		TopicExists:       true,
		CurrentTaskID:     topic.CurrentTaskID,
		CurrentTaskStatus: models.TaskStatus(topic.CurrentTaskStatus),
	})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	nextID, err := s.taskRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate task ID: %w", err)
	}

	record := &secondary.TaskRecord{
		ID:        nextID,
		TopicID:   req.TopicID,
		ProjectID: req.ProjectID,
		Status:    string(task.InitialStatus()),
	}
	if err := s.taskRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	err = s.topicRepo.SetCurrentTaskIfMatch(ctx, topic.ID, topic.UpdatedAt, nextID, record.Status)
	if err != nil {
		// Another creator claimed the topic between our read and write.
		// The task we just inserted must not survive the lost race.
		_ = s.taskRepo.SoftDelete(ctx, nextID)
		if errors.Is(err, secondary.ErrConflict) {
			return nil, fmt.Errorf("topic %s was claimed by another task: %w", topic.ID, err)
		}
		return nil, fmt.Errorf("failed to claim topic: %w", err)
	}

	_ = s.logWriter.LogCreate(ctx, "task", nextID)
	s.notifier.PublishTaskStatus(ctx, secondary.TaskStatusEvent{
		TaskID:  nextID,
		TopicID: req.TopicID,
		Status:  record.Status,
	})

	created, err := s.taskRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created task: %w", err)
	}
	return recordToTask(created), nil
}

// GetTask retrieves a task by ID.
func (s *TaskServiceImpl) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	record, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return recordToTask(record), nil
}

// ListTasks lists a topic's tasks, newest first.
func (s *TaskServiceImpl) ListTasks(ctx context.Context, topicID string, limit int) ([]*models.Task, error) {
	records, err := s.taskRepo.ListByTopic(ctx, topicID, limit)
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, recordToTask(r))
	}
	return tasks, nil
}

// TransitionTask applies a status transition and refreshes the owning
// topic's denormalized status mirror. A transition that loses an
// optimistic-concurrency race to an identical transition is treated as
// already done.
func (s *TaskServiceImpl) TransitionTask(ctx context.Context, taskID string, to models.TaskStatus, errMsg string) (*models.Task, error) {
	record, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	from := models.TaskStatus(record.Status)
	result, err := task.ApplyTransition(taskID, from, to, errMsg, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	err = s.taskRepo.UpdateStatusIfMatch(ctx, taskID, record.Status, record.UpdatedAt, string(result.NewStatus), result.ErrMsg)
	if err != nil {
		if errors.Is(err, secondary.ErrConflict) {
			// Re-read: a concurrent writer may have applied the same
			// transition (duplicate callback). That is not a failure.
			current, readErr := s.taskRepo.GetByID(ctx, taskID)
			if readErr == nil && models.TaskStatus(current.Status) == to {
				return recordToTask(current), nil
			}
		}
		return nil, fmt.Errorf("failed to transition task %s: %w", taskID, err)
	}

	// Refresh the topic's status mirror; a stale write for a superseded
	// task is dropped by the repository.
	if err := s.topicRepo.SetCurrentTaskStatus(ctx, record.TopicID, taskID, string(result.NewStatus)); err != nil {
		return nil, fmt.Errorf("failed to refresh topic status mirror: %w", err)
	}

	_ = s.logWriter.LogUpdate(ctx, "task", taskID, "status", record.Status, string(result.NewStatus))
	s.notifier.PublishTaskStatus(ctx, secondary.TaskStatusEvent{
		TaskID:  taskID,
		TopicID: record.TopicID,
		Status:  string(result.NewStatus),
		ErrMsg:  result.ErrMsg,
	})

	updated, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transitioned task: %w", err)
	}
	return recordToTask(updated), nil
}

// HandleSandboxCallback consumes a status-change webhook from the
// sandbox. A duplicate callback for an already-applied status is a no-op.
func (s *TaskServiceImpl) HandleSandboxCallback(ctx context.Context, sandboxTaskID string, status models.TaskStatus, errMsg string) error {
	record, err := s.taskRepo.GetBySandboxTaskID(ctx, sandboxTaskID)
	if err != nil {
		return fmt.Errorf("unknown sandbox task %s: %w", sandboxTaskID, err)
	}

	if models.TaskStatus(record.Status) == status {
		return nil
	}

	_, err = s.TransitionTask(ctx, record.ID, status, errMsg)
	return err
}

// ReapStale moves every running task whose last update is older than the
// threshold into error. A task that transitions concurrently is skipped,
// not counted, and not an error.
func (s *TaskServiceImpl) ReapStale(ctx context.Context, olderThan time.Duration) (int, error) {
	now := time.Now().UTC()
	stale, err := s.taskRepo.ListStaleRunning(ctx, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale tasks: %w", err)
	}

	reaped := 0
	for _, record := range stale {
		if !task.IsStale(models.TaskStatus(record.Status), record.UpdatedAt, now, olderThan) {
			continue
		}

		errMsg := fmt.Sprintf("task reaped: no sandbox update since %s", record.UpdatedAt.Format(time.RFC3339))
		err := s.taskRepo.UpdateStatusIfMatch(ctx, record.ID, record.Status, record.UpdatedAt, string(models.TaskStatusError), errMsg)
		if errors.Is(err, secondary.ErrConflict) {
			continue // the task moved on its own, leave it alone
		}
		if err != nil {
			return reaped, fmt.Errorf("failed to reap task %s: %w", record.ID, err)
		}

		if err := s.topicRepo.SetCurrentTaskStatus(ctx, record.TopicID, record.ID, string(models.TaskStatusError)); err != nil {
			return reaped, fmt.Errorf("failed to refresh topic status mirror: %w", err)
		}
		_ = s.logWriter.LogUpdate(ctx, "task", record.ID, "status", record.Status, string(models.TaskStatusError))
		s.notifier.PublishTaskStatus(ctx, secondary.TaskStatusEvent{
			TaskID:  record.ID,
			TopicID: record.TopicID,
			Status:  string(models.TaskStatusError),
			ErrMsg:  errMsg,
		})
		reaped++
	}
	return reaped, nil
}
