package models

import "time"

// MessageStatus represents the dispatch state of a queued message.
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusInProgress MessageStatus = "in_progress"
	MessageStatusCompleted  MessageStatus = "completed"
	MessageStatusFailed     MessageStatus = "failed"
)

// QueuedMessage is one pending task trigger for a topic. Within a topic,
// messages are processed in non-decreasing ExceptExecuteTime, ties broken
// by ID ascending (insertion order).
type QueuedMessage struct {
	ID                string
	TopicID           string
	ProjectID         string
	UserID            string
	Payload           string
	Status            MessageStatus
	ExceptExecuteTime time.Time
	ErrMsg            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}
