package secondary

import "context"

// TaskStatusEvent reports a task status change to the chat/UI layer.
type TaskStatusEvent struct {
	TaskID  string
	TopicID string
	Status  string
	ErrMsg  string
}

// ForkProgressEvent reports fork progress to the chat/UI layer.
type ForkProgressEvent struct {
	ForkID         string
	ForkProjectID  string
	Status         string
	Progress       int
	ProcessedFiles int
	TotalFiles     int
}

// Notifier defines the secondary port for the outbound notification
// channel. Delivery is fire-and-forget and best-effort: it is never
// transactional with the state change it reports, and failures are
// logged by the adapter rather than surfaced to callers.
type Notifier interface {
	PublishTaskStatus(ctx context.Context, event TaskStatusEvent)
	PublishForkProgress(ctx context.Context, event ForkProgressEvent)
}
