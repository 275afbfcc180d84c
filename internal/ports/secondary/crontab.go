package secondary

import "context"

// RegisterTriggerRequest describes a trigger to register with the
// external crontab service.
type RegisterTriggerRequest struct {
	ScheduleID string
	TimeSpec   string
	OneShot    bool
}

// CrontabClient defines the secondary port for the external scheduler
// service. The service owns firing and fire-idempotency; this core only
// registers and unregisters triggers and stores the returned ID.
type CrontabClient interface {
	// RegisterTrigger registers a trigger and returns its external ID.
	RegisterTrigger(ctx context.Context, req RegisterTriggerRequest) (string, error)

	// UnregisterTrigger removes a previously registered trigger.
	UnregisterTrigger(ctx context.Context, triggerID string) error
}
