// Package primary defines the primary ports (driving interfaces) for the
// application services.
package primary

import (
	"context"
	"time"

	"github.com/example/atelier/internal/models"
)

// TaskService defines the primary port for the task state machine.
type TaskService interface {
	// CreateTask creates a new pending task for a topic and points the
	// topic's current-task pointer at it.
	CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID string) (*models.Task, error)

	// ListTasks lists a topic's tasks, newest first.
	ListTasks(ctx context.Context, topicID string, limit int) ([]*models.Task, error)

	// TransitionTask applies a status transition and refreshes the
	// owning topic's denormalized status mirror.
	TransitionTask(ctx context.Context, taskID string, to models.TaskStatus, errMsg string) (*models.Task, error)

	// HandleSandboxCallback consumes a status-change webhook from the
	// sandbox, identified by the sandbox-assigned task ID.
	HandleSandboxCallback(ctx context.Context, sandboxTaskID string, status models.TaskStatus, errMsg string) error

	// ReapStale moves every running task whose last update is older
	// than the threshold into error, and returns how many were reaped.
	ReapStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// CreateTaskRequest contains parameters for creating a task.
type CreateTaskRequest struct {
	TopicID   string
	ProjectID string
}

// TopicService defines the primary port for topic operations.
type TopicService interface {
	// CreateTopic creates a new topic in a project.
	CreateTopic(ctx context.Context, req CreateTopicRequest) (*models.Topic, error)

	// GetTopic retrieves a topic by ID.
	GetTopic(ctx context.Context, topicID string) (*models.Topic, error)

	// ListTopics lists topics with optional filters.
	ListTopics(ctx context.Context, filters TopicFilters) ([]*models.Topic, error)
}

// CreateTopicRequest contains parameters for creating a topic.
type CreateTopicRequest struct {
	ProjectID string
	UserID    string
	Title     string
}

// TopicFilters contains filter options for listing topics.
type TopicFilters struct {
	ProjectID string
	UserID    string
	Limit     int
}
