package app

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// RunnerConfig holds the timing knobs for the background workers.
type RunnerConfig struct {
	// PollInterval is how often the compensation poller scans for topics
	// with eligible pending messages.
	PollInterval time.Duration
	// ReapInterval is how often the stale-task reaper runs.
	ReapInterval time.Duration
	// StaleThreshold is how long a running task may go without an update
	// before the reaper errors it out.
	StaleThreshold time.Duration
}

// Runner drives the background loops: the compensation poller, the
// stale-task reaper, and the fork resumer. It is the long-running body
// of the daemon process.
type Runner struct {
	queueService primary.QueueService
	taskService  primary.TaskService
	forkService  primary.ForkService
	forkRepo     secondary.ForkRepository
	cfg          RunnerConfig
}

// NewRunner creates a Runner with injected services.
func NewRunner(
	queueService primary.QueueService,
	taskService primary.TaskService,
	forkService primary.ForkService,
	forkRepo secondary.ForkRepository,
	cfg RunnerConfig,
) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 30 * time.Minute
	}
	return &Runner{
		queueService: queueService,
		taskService:  taskService,
		forkService:  forkService,
		forkRepo:     forkRepo,
		cfg:          cfg,
	}
}

// Run starts the background loops and blocks until the context is
// cancelled. Loop iterations log their failures and keep going; only
// context cancellation stops a loop.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.pollLoop(ctx) })
	g.Go(func() error { return r.reapLoop(ctx) })
	g.Go(func() error { return r.resumeForks(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			dispatched, err := r.queueService.PollOnce(ctx)
			if err != nil {
				log.Printf("runner: compensation poll failed: %v", err)
				continue
			}
			if dispatched > 0 {
				log.Printf("runner: compensation poll dispatched %d task(s)", dispatched)
			}
		}
	}
}

func (r *Runner) reapLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reaped, err := r.taskService.ReapStale(ctx, r.cfg.StaleThreshold)
			if err != nil {
				log.Printf("runner: stale-task reap failed: %v", err)
				continue
			}
			if reaped > 0 {
				log.Printf("runner: reaped %d stale task(s)", reaped)
			}
		}
	}
}

// resumeForks picks up fork jobs that were running when the previous
// process died and drives each to a terminal status. Forks run
// concurrently; one failing does not stop the others.
func (r *Runner) resumeForks(ctx context.Context) error {
	records, err := r.forkRepo.ListRunning(ctx)
	if err != nil {
		log.Printf("runner: failed to list running forks: %v", err)
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, record := range records {
		forkID := record.ID
		g.Go(func() error {
			log.Printf("runner: resuming fork %s", forkID)
			if err := r.forkService.RunFork(ctx, forkID); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("runner: fork %s failed: %v", forkID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
