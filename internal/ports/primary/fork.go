package primary

import (
	"context"

	"github.com/example/atelier/internal/models"
)

// ForkService defines the primary port for the project fork engine.
type ForkService interface {
	// StartFork creates a new running fork job for a source project,
	// rejecting it when the same user already has one running for that
	// source. The copy itself is performed by RunFork.
	StartFork(ctx context.Context, req StartForkRequest) (*models.ProjectFork, error)

	// ResumeFork creates a new fork job that continues a failed fork
	// into the same destination project, carrying over the checkpoint.
	ResumeFork(ctx context.Context, failedForkID string) (*models.ProjectFork, error)

	// RunFork executes the batch copy loop for a fork until it reaches
	// a terminal status or the context is cancelled.
	RunFork(ctx context.Context, forkID string) error

	// CancelFork flips a running fork to failed; in-flight batch
	// writers abort before their next commit.
	CancelFork(ctx context.Context, forkID string) error

	// GetFork retrieves a fork job by ID.
	GetFork(ctx context.Context, forkID string) (*models.ProjectFork, error)

	// ListForks lists a user's fork jobs, newest first.
	ListForks(ctx context.Context, userID string, limit int) ([]*models.ProjectFork, error)
}

// StartForkRequest contains parameters for starting a fork.
type StartForkRequest struct {
	UserID          string
	SourceProjectID string
	ForkProjectID   string
	WorkspaceID     string
}
