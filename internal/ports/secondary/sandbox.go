package secondary

import "context"

// StartTaskRequest carries what the sandbox needs to start an agent run.
type StartTaskRequest struct {
	TaskID    string
	TopicID   string
	ProjectID string
	// SessionID is the topic's existing sandbox session, empty for the
	// first task of a topic; the sandbox then allocates one.
	SessionID string
	Payload   string
}

// StartTaskResult is the sandbox's acknowledgement of a started task.
type StartTaskResult struct {
	SandboxTaskID string
	SessionID     string
}

// SandboxClient defines the secondary port for the isolated execution
// runtime that runs the AI agent. Status changes flow back through the
// task service's sandbox callback, not through this interface; there is
// no per-call timeout here - a sandbox that never calls back is caught
// by the stale-task reaper.
type SandboxClient interface {
	// StartTask asks the sandbox to begin executing a task.
	StartTask(ctx context.Context, req StartTaskRequest) (*StartTaskResult, error)
}
