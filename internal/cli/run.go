package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/ctxutil"
	"github.com/example/atelier/internal/wire"
)

// RunCmd returns the run command, the long-running daemon entrypoint.
// It hosts the compensation poller, the stale-task reaper, and resumes
// any fork jobs left running by a previous process.
func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the background workers",
		Long:  "Run the compensation poller, stale-task reaper, and fork resumer until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = ctxutil.WithActorID(ctx, "system")

			cfg := wire.Config()
			fmt.Printf("atelier workers started (poll %s, reap %s, stale after %s)\n",
				cfg.PollInterval(), cfg.ReapInterval(), cfg.StaleThreshold())

			if err := wire.Runner().Run(ctx); err != nil {
				return fmt.Errorf("workers stopped: %w", err)
			}
			fmt.Println("atelier workers stopped")
			return nil
		},
	}
}
