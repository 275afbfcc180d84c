package primary

import (
	"context"
	"time"

	"github.com/example/atelier/internal/models"
)

// QueueService defines the primary port for the message queue. It
// guarantees at-most-one in-flight task per topic and strict per-topic
// ordering of triggering messages.
type QueueService interface {
	// Enqueue inserts a pending message for a topic.
	Enqueue(ctx context.Context, req EnqueueRequest) (*models.QueuedMessage, error)

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, messageID string) (*models.QueuedMessage, error)

	// ListMessages lists a topic's messages in processing order.
	ListMessages(ctx context.Context, topicID string, limit int) ([]*models.QueuedMessage, error)

	// DequeueNext peeks at the topic's oldest eligible pending message
	// without mutating it; returns nil when none is due.
	DequeueNext(ctx context.Context, topicID string) (*models.QueuedMessage, error)

	// MarkCompleted moves an in-progress message to completed.
	MarkCompleted(ctx context.Context, messageID string) error

	// MarkFailed moves a message to failed, retaining the error text.
	// Failed messages are not retried automatically.
	MarkFailed(ctx context.Context, messageID, errMsg string) error

	// RetryMessage explicitly resets a failed message to pending with a
	// fresh execution time.
	RetryMessage(ctx context.Context, messageID string, notBefore time.Time) error

	// Delay shifts the execution time of every pending message in the
	// topic forward (compensation backpressure) and returns the count.
	Delay(ctx context.Context, topicID string, delay time.Duration) (int, error)

	// ListCompensationTopics returns topics that currently have at
	// least one eligible pending message.
	ListCompensationTopics(ctx context.Context, limit int, projectID string) ([]string, error)

	// DispatchTopic attempts to dispatch the topic's earliest eligible
	// message: create a task, mark the message in progress, and start
	// the sandbox run. Returns the created task, or nil when the topic
	// was skipped (no eligible message, or a task is already active).
	DispatchTopic(ctx context.Context, topicID string) (*models.Task, error)

	// PollOnce runs one compensation pass over eligible topics and
	// returns how many dispatches were started.
	PollOnce(ctx context.Context) (int, error)
}

// EnqueueRequest contains parameters for enqueuing a message.
type EnqueueRequest struct {
	TopicID   string
	ProjectID string
	UserID    string
	Payload   string
	// NotBefore is the earliest time the message may be dispatched
	// (except_execute_time); the zero value means immediately.
	NotBefore time.Time
}
