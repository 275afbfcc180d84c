// Package notify publishes status events to the chat/UI layer.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/example/atelier/internal/ports/secondary"
)

// Publisher implements secondary.Notifier over HTTP. Delivery is
// best-effort: a failed publish is logged and dropped, never retried and
// never surfaced to the caller. State changes must not depend on it.
type Publisher struct {
	http *resty.Client
}

// NewPublisher creates a notification publisher for the given base URL.
func NewPublisher(baseURL string, timeout time.Duration) *Publisher {
	return &Publisher{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type eventEnvelope struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type taskStatusPayload struct {
	TaskID  string `json:"task_id"`
	TopicID string `json:"topic_id"`
	Status  string `json:"status"`
	ErrMsg  string `json:"err_msg,omitempty"`
}

type forkProgressPayload struct {
	ForkID         string `json:"fork_id"`
	ForkProjectID  string `json:"fork_project_id"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	ProcessedFiles int    `json:"processed_files"`
	TotalFiles     int    `json:"total_files"`
}

// PublishTaskStatus reports a task status change.
func (p *Publisher) PublishTaskStatus(ctx context.Context, event secondary.TaskStatusEvent) {
	p.publish(ctx, "task.status", taskStatusPayload{
		TaskID:  event.TaskID,
		TopicID: event.TopicID,
		Status:  event.Status,
		ErrMsg:  event.ErrMsg,
	})
}

// PublishForkProgress reports fork progress.
func (p *Publisher) PublishForkProgress(ctx context.Context, event secondary.ForkProgressEvent) {
	p.publish(ctx, "fork.progress", forkProgressPayload{
		ForkID:         event.ForkID,
		ForkProjectID:  event.ForkProjectID,
		Status:         event.Status,
		Progress:       event.Progress,
		ProcessedFiles: event.ProcessedFiles,
		TotalFiles:     event.TotalFiles,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload any) {
	envelope := eventEnvelope{
		EventID: uuid.NewString(),
		Type:    eventType,
		Payload: payload,
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(envelope).
		Post("/v1/events")
	if err != nil {
		log.Printf("notify: dropping %s event %s: %v", eventType, envelope.EventID, err)
		return
	}
	if resp.IsError() {
		log.Printf("notify: %s event %s rejected: %s", eventType, envelope.EventID, resp.Status())
	}
}
