package fork

import (
	"fmt"

	"github.com/example/atelier/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// StartForkContext provides context for the fork creation guard.
type StartForkContext struct {
	UserID          string
	SourceProjectID string
	// RunningForkID is the ID of an already-running fork for the same
	// (user, source project) pair, empty if none.
	RunningForkID string
}

// CanStartFork evaluates whether a new fork job may be created.
// Rules:
// - at most one running fork per (user, source project) pair; this
//   rejects double-submitted fork requests before any row is created
func CanStartFork(ctx StartForkContext) GuardResult {
	if ctx.RunningForkID != "" {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("fork %s is already running for project %s",
				ctx.RunningForkID, ctx.SourceProjectID),
		}
	}
	return GuardResult{Allowed: true}
}

// CanResumeFork evaluates whether a failed fork may be resumed.
// Only failed forks are resumable; the resume creates a new fork job
// pointed at the same destination, it never reuses the failed row.
func CanResumeFork(status models.ForkStatus) GuardResult {
	if status != models.ForkStatusFailed {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("only failed forks can be resumed (status: %s)", status),
		}
	}
	return GuardResult{Allowed: true}
}
