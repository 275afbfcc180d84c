package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/atelier/internal/core/queue"
	"github.com/example/atelier/internal/core/task"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// QueueServiceImpl implements the QueueService interface. It is the
// dispatch path between queued messages and sandbox tasks: per-topic
// ordering comes from the repository's (except_execute_time, id) order,
// single-flight from the topic's conditional current-task update.
type QueueServiceImpl struct {
	msgRepo   secondary.MessageRepository
	topicRepo secondary.TopicRepository
	taskRepo  secondary.TaskRepository
	sandbox   secondary.SandboxClient
	notifier  secondary.Notifier
	logWriter secondary.LogWriter
	// pollLimit caps how many topics one compensation pass touches.
	pollLimit int
}

// NewQueueService creates a new QueueService with injected dependencies.
func NewQueueService(
	msgRepo secondary.MessageRepository,
	topicRepo secondary.TopicRepository,
	taskRepo secondary.TaskRepository,
	sandbox secondary.SandboxClient,
	notifier secondary.Notifier,
	logWriter secondary.LogWriter,
	pollLimit int,
) *QueueServiceImpl {
	if pollLimit <= 0 {
		pollLimit = 50
	}
	return &QueueServiceImpl{
		msgRepo:   msgRepo,
		topicRepo: topicRepo,
		taskRepo:  taskRepo,
		sandbox:   sandbox,
		notifier:  notifier,
		logWriter: logWriter,
		pollLimit: pollLimit,
	}
}

// Enqueue inserts a pending message for a topic.
func (s *QueueServiceImpl) Enqueue(ctx context.Context, req primary.EnqueueRequest) (*models.QueuedMessage, error) {
	if _, err := s.topicRepo.GetByID(ctx, req.TopicID); err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, fmt.Errorf("topic %s not found", req.TopicID)
		}
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}

	nextID, err := s.msgRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate message ID: %w", err)
	}

	notBefore := req.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().UTC()
	}

	record := &secondary.MessageRecord{
		ID:                nextID,
		TopicID:           req.TopicID,
		ProjectID:         req.ProjectID,
		UserID:            req.UserID,
		Payload:           req.Payload,
		Status:            string(models.MessageStatusPending),
		ExceptExecuteTime: notBefore.UTC(),
	}
	if err := s.msgRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to enqueue message: %w", err)
	}

	_ = s.logWriter.LogCreate(ctx, "message", nextID)

	created, err := s.msgRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enqueued message: %w", err)
	}
	return recordToMessage(created), nil
}

// GetMessage retrieves a message by ID.
func (s *QueueServiceImpl) GetMessage(ctx context.Context, messageID string) (*models.QueuedMessage, error) {
	record, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return recordToMessage(record), nil
}

// ListMessages lists a topic's messages in processing order.
func (s *QueueServiceImpl) ListMessages(ctx context.Context, topicID string, limit int) ([]*models.QueuedMessage, error) {
	records, err := s.msgRepo.List(ctx, secondary.MessageFilters{TopicID: topicID, Limit: limit})
	if err != nil {
		return nil, err
	}

	msgs := make([]*models.QueuedMessage, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, recordToMessage(r))
	}
	return msgs, nil
}

// DequeueNext peeks at the topic's oldest eligible pending message
// without mutating it.
func (s *QueueServiceImpl) DequeueNext(ctx context.Context, topicID string) (*models.QueuedMessage, error) {
	record, err := s.msgRepo.EarliestEligible(ctx, topicID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return recordToMessage(record), nil
}

// MarkCompleted moves an in-progress message to completed.
func (s *QueueServiceImpl) MarkCompleted(ctx context.Context, messageID string) error {
	err := s.msgRepo.UpdateStatusIfMatch(ctx, messageID,
		string(models.MessageStatusInProgress), string(models.MessageStatusCompleted), "")
	if err != nil {
		return err
	}
	_ = s.logWriter.LogUpdate(ctx, "message", messageID, "status",
		string(models.MessageStatusInProgress), string(models.MessageStatusCompleted))
	return nil
}

// MarkFailed moves a message to failed, retaining the error text. Works
// from either pending or in_progress.
func (s *QueueServiceImpl) MarkFailed(ctx context.Context, messageID, errMsg string) error {
	record, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if models.MessageStatus(record.Status) == models.MessageStatusFailed {
		return nil
	}
	if models.MessageStatus(record.Status) == models.MessageStatusCompleted {
		return fmt.Errorf("message %s is already completed", messageID)
	}

	err = s.msgRepo.UpdateStatusIfMatch(ctx, messageID, record.Status, string(models.MessageStatusFailed), errMsg)
	if err != nil {
		return err
	}
	_ = s.logWriter.LogUpdate(ctx, "message", messageID, "status", record.Status, string(models.MessageStatusFailed))
	return nil
}

// RetryMessage explicitly resets a failed message to pending with a
// fresh execution time.
func (s *QueueServiceImpl) RetryMessage(ctx context.Context, messageID string, notBefore time.Time) error {
	if notBefore.IsZero() {
		notBefore = time.Now().UTC()
	}
	if err := s.msgRepo.ResetForRetry(ctx, messageID, notBefore); err != nil {
		return err
	}
	_ = s.logWriter.LogUpdate(ctx, "message", messageID, "status",
		string(models.MessageStatusFailed), string(models.MessageStatusPending))
	return nil
}

// Delay shifts the execution time of every pending message in the topic
// forward and returns how many moved.
func (s *QueueServiceImpl) Delay(ctx context.Context, topicID string, delay time.Duration) (int, error) {
	if delay <= 0 {
		return 0, fmt.Errorf("delay must be positive")
	}
	return s.msgRepo.DelayPending(ctx, topicID, time.Now().UTC(), delay)
}

// ListCompensationTopics returns topics that currently have at least one
// eligible pending message.
func (s *QueueServiceImpl) ListCompensationTopics(ctx context.Context, limit int, projectID string) ([]string, error) {
	return s.msgRepo.ListCompensationTopics(ctx, limit, time.Now().UTC(), projectID)
}

// DispatchTopic attempts to dispatch the topic's earliest eligible
// message. Returns the created task, or (nil, nil) when the topic was
// skipped: nothing eligible, a task already active, or a racing worker
// claimed the work first. Races are benign; the losing side walks away
// and the pending message survives for the next poll.
func (s *QueueServiceImpl) DispatchTopic(ctx context.Context, topicID string) (*models.Task, error) {
	topic, err := s.topicRepo.GetByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, fmt.Errorf("topic %s not found", topicID)
		}
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}

	now := time.Now().UTC()
	msgRecord, err := s.msgRepo.EarliestEligible(ctx, topicID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to peek message queue: %w", err)
	}

	var msg *models.QueuedMessage
	if msgRecord != nil {
		msg = recordToMessage(msgRecord)
	}
	decision, reason := queue.Decide(queue.DispatchContext{
		Message:           msg,
		Now:               now,
		TopicExists:       true,
		CurrentTaskID:     topic.CurrentTaskID,
		CurrentTaskStatus: models.TaskStatus(topic.CurrentTaskStatus),
	})
	switch decision {
	case queue.DecisionSkip:
		return nil, nil
	case queue.DecisionReject:
		return nil, fmt.Errorf("cannot dispatch topic %s: %s", topicID, reason)
	}

	// Claim the message. Exactly one racing dispatcher wins this update.
	err = s.msgRepo.UpdateStatusIfMatch(ctx, msg.ID,
		string(models.MessageStatusPending), string(models.MessageStatusInProgress), "")
	if errors.Is(err, secondary.ErrConflict) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim message %s: %w", msg.ID, err)
	}

	nextID, err := s.taskRepo.GetNextID(ctx)
	if err != nil {
		s.releaseMessage(ctx, msg.ID)
		return nil, fmt.Errorf("failed to generate task ID: %w", err)
	}
	taskRecord := &secondary.TaskRecord{
		ID:        nextID,
		TopicID:   topicID,
		ProjectID: msg.ProjectID,
		Status:    string(task.InitialStatus()),
	}
	if err := s.taskRepo.Create(ctx, taskRecord); err != nil {
		s.releaseMessage(ctx, msg.ID)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// Second half of the race breaker: claim the topic's current-task
	// pointer. A loser here unwinds completely.
	err = s.topicRepo.SetCurrentTaskIfMatch(ctx, topicID, topic.UpdatedAt, nextID, taskRecord.Status)
	if err != nil {
		_ = s.taskRepo.SoftDelete(ctx, nextID)
		s.releaseMessage(ctx, msg.ID)
		if errors.Is(err, secondary.ErrConflict) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim topic: %w", err)
	}

	result, err := s.sandbox.StartTask(ctx, secondary.StartTaskRequest{
		TaskID:    nextID,
		TopicID:   topicID,
		ProjectID: msg.ProjectID,
		SessionID: topic.SandboxSessionID,
		Payload:   msg.Payload,
	})
	if err != nil {
		// The sandbox never saw the task: fail both sides and surface it.
		failMsg := fmt.Sprintf("sandbox start failed: %v", err)
		_ = s.taskRepo.UpdateStatusIfMatch(ctx, nextID, taskRecord.Status, taskRecord.UpdatedAt,
			string(models.TaskStatusError), failMsg)
		_ = s.topicRepo.SetCurrentTaskStatus(ctx, topicID, nextID, string(models.TaskStatusError))
		_ = s.msgRepo.UpdateStatusIfMatch(ctx, msg.ID,
			string(models.MessageStatusInProgress), string(models.MessageStatusFailed), failMsg)
		s.notifier.PublishTaskStatus(ctx, secondary.TaskStatusEvent{
			TaskID:  nextID,
			TopicID: topicID,
			Status:  string(models.TaskStatusError),
			ErrMsg:  failMsg,
		})
		return nil, fmt.Errorf("failed to start sandbox task: %w", err)
	}

	if err := s.taskRepo.SetSandboxTaskID(ctx, nextID, result.SandboxTaskID); err != nil {
		return nil, fmt.Errorf("failed to record sandbox task id: %w", err)
	}
	if result.SessionID != "" && result.SessionID != topic.SandboxSessionID {
		if err := s.topicRepo.SetSandboxSessionID(ctx, topicID, result.SessionID); err != nil {
			return nil, fmt.Errorf("failed to record sandbox session: %w", err)
		}
	}

	// The message's job was triggering the task; it is done regardless of
	// how the task itself ends.
	err = s.msgRepo.UpdateStatusIfMatch(ctx, msg.ID,
		string(models.MessageStatusInProgress), string(models.MessageStatusCompleted), "")
	if err != nil {
		return nil, fmt.Errorf("failed to complete message %s: %w", msg.ID, err)
	}

	_ = s.logWriter.LogCreate(ctx, "task", nextID)
	s.notifier.PublishTaskStatus(ctx, secondary.TaskStatusEvent{
		TaskID:  nextID,
		TopicID: topicID,
		Status:  taskRecord.Status,
	})

	created, err := s.taskRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dispatched task: %w", err)
	}
	return recordToTask(created), nil
}

// releaseMessage puts a claimed message back to pending after a dispatch
// unwound before reaching the sandbox.
func (s *QueueServiceImpl) releaseMessage(ctx context.Context, messageID string) {
	err := s.msgRepo.UpdateStatusIfMatch(ctx, messageID,
		string(models.MessageStatusInProgress), string(models.MessageStatusPending), "")
	if err != nil && !errors.Is(err, secondary.ErrConflict) {
		log.Printf("queue: failed to release message %s: %v", messageID, err)
	}
}

// PollOnce runs one compensation pass: find topics with eligible pending
// messages and try to dispatch each. Per-topic failures are logged and
// skipped so one broken topic cannot stall the rest of the queue.
func (s *QueueServiceImpl) PollOnce(ctx context.Context) (int, error) {
	topics, err := s.msgRepo.ListCompensationTopics(ctx, s.pollLimit, time.Now().UTC(), "")
	if err != nil {
		return 0, fmt.Errorf("failed to list compensation topics: %w", err)
	}

	dispatched := 0
	for _, topicID := range topics {
		if ctx.Err() != nil {
			return dispatched, ctx.Err()
		}
		created, err := s.DispatchTopic(ctx, topicID)
		if err != nil {
			log.Printf("queue: compensation dispatch for topic %s failed: %v", topicID, err)
			continue
		}
		if created != nil {
			dispatched++
		}
	}
	return dispatched, nil
}
