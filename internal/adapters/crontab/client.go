// Package crontab talks to the external scheduler service over HTTP.
package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/example/atelier/internal/ports/secondary"
)

// Client implements secondary.CrontabClient against the crontab HTTP API.
// The crontab service owns firing and fire-idempotency; this client only
// registers and removes triggers.
type Client struct {
	http *resty.Client
}

// NewClient creates a crontab client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type registerTriggerBody struct {
	ScheduleID string `json:"schedule_id"`
	TimeSpec   string `json:"time_spec"`
	OneShot    bool   `json:"one_shot"`
}

type registerTriggerResponse struct {
	TriggerID string `json:"trigger_id"`
	Message   string `json:"message"`
}

// RegisterTrigger registers a trigger and returns its external ID.
func (c *Client) RegisterTrigger(ctx context.Context, req secondary.RegisterTriggerRequest) (string, error) {
	var out registerTriggerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(registerTriggerBody{
			ScheduleID: req.ScheduleID,
			TimeSpec:   req.TimeSpec,
			OneShot:    req.OneShot,
		}).
		SetResult(&out).
		Post("/v1/triggers")
	if err != nil {
		return "", fmt.Errorf("failed to register trigger: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("crontab rejected trigger for %s: %s (%s)", req.ScheduleID, resp.Status(), out.Message)
	}
	if out.TriggerID == "" {
		return "", fmt.Errorf("crontab returned no trigger id for %s", req.ScheduleID)
	}
	return out.TriggerID, nil
}

// UnregisterTrigger removes a previously registered trigger. A trigger
// the service no longer knows is treated as already removed.
func (c *Client) UnregisterTrigger(ctx context.Context, triggerID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/v1/triggers/" + triggerID)
	if err != nil {
		return fmt.Errorf("failed to unregister trigger: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return fmt.Errorf("crontab refused to remove trigger %s: %s", triggerID, resp.Status())
	}
	return nil
}
