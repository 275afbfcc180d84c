// Package sandbox talks to the isolated execution runtime over HTTP.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/example/atelier/internal/ports/secondary"
)

// Client implements secondary.SandboxClient against the sandbox HTTP API.
type Client struct {
	http *resty.Client
}

// NewClient creates a sandbox client for the given base URL. The timeout
// only covers the start call; task completion is reported back through
// the callback endpoint, not this connection.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type startTaskBody struct {
	TaskID    string `json:"task_id"`
	TopicID   string `json:"topic_id"`
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id,omitempty"`
	Payload   string `json:"payload"`
}

type startTaskResponse struct {
	SandboxTaskID string `json:"sandbox_task_id"`
	SessionID     string `json:"session_id"`
	Message       string `json:"message"`
}

// StartTask asks the sandbox to begin executing a task.
func (c *Client) StartTask(ctx context.Context, req secondary.StartTaskRequest) (*secondary.StartTaskResult, error) {
	var out startTaskResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(startTaskBody{
			TaskID:    req.TaskID,
			TopicID:   req.TopicID,
			ProjectID: req.ProjectID,
			SessionID: req.SessionID,
			Payload:   req.Payload,
		}).
		SetResult(&out).
		Post("/v1/tasks")
	if err != nil {
		return nil, fmt.Errorf("failed to start sandbox task: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sandbox rejected task %s: %s (%s)", req.TaskID, resp.Status(), out.Message)
	}
	if out.SandboxTaskID == "" {
		return nil, fmt.Errorf("sandbox returned no task id for %s", req.TaskID)
	}

	return &secondary.StartTaskResult{
		SandboxTaskID: out.SandboxTaskID,
		SessionID:     out.SessionID,
	}, nil
}
