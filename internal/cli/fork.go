package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

var forkCmd = &cobra.Command{
	Use:   "fork",
	Short: "Manage project fork jobs",
	Long:  "Fork a project's file tree into a new project. Copies run in resumable batches with a checkpoint after each commit.",
}

var forkStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a fork and run the copy to completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		sourceID, _ := cmd.Flags().GetString("source")
		destID, _ := cmd.Flags().GetString("dest")
		workspaceID, _ := cmd.Flags().GetString("workspace")
		noWait, _ := cmd.Flags().GetBool("no-wait")
		if sourceID == "" || destID == "" {
			return fmt.Errorf("--source and --dest are required")
		}

		job, err := wire.ForkService().StartFork(cmd.Context(), primary.StartForkRequest{
			UserID:          userID,
			SourceProjectID: sourceID,
			ForkProjectID:   destID,
			WorkspaceID:     workspaceID,
		})
		if err != nil {
			return fmt.Errorf("failed to start fork: %w", err)
		}
		fmt.Printf("✓ Started fork %s: %s → %s (%d files)\n", job.ID, job.SourceProjectID, job.ForkProjectID, job.TotalFiles)

		if noWait {
			fmt.Println("Copy left to the worker daemon.")
			return nil
		}
		if err := wire.ForkService().RunFork(cmd.Context(), job.ID); err != nil {
			return fmt.Errorf("fork copy failed: %w", err)
		}
		return printForkOutcome(cmd, job.ID)
	},
}

var forkResumeCmd = &cobra.Command{
	Use:   "resume [failed-fork-id]",
	Short: "Resume a failed fork from its checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noWait, _ := cmd.Flags().GetBool("no-wait")

		job, err := wire.ForkService().ResumeFork(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to resume fork: %w", err)
		}
		fmt.Printf("✓ Resuming as fork %s from checkpoint %s\n", job.ID, job.CurrentFileID)

		if noWait {
			fmt.Println("Copy left to the worker daemon.")
			return nil
		}
		if err := wire.ForkService().RunFork(cmd.Context(), job.ID); err != nil {
			return fmt.Errorf("fork copy failed: %w", err)
		}
		return printForkOutcome(cmd, job.ID)
	},
}

var forkRunCmd = &cobra.Command{
	Use:   "run [fork-id]",
	Short: "Run the batch copy loop for a fork",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.ForkService().RunFork(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("fork copy failed: %w", err)
		}
		return printForkOutcome(cmd, args[0])
	},
}

var forkCancelCmd = &cobra.Command{
	Use:   "cancel [fork-id]",
	Short: "Cancel a running fork",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.ForkService().CancelFork(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to cancel fork: %w", err)
		}
		fmt.Printf("✓ Cancelled fork %s\n", args[0])
		return nil
	},
}

var forkShowCmd = &cobra.Command{
	Use:   "show [fork-id]",
	Short: "Show fork details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := wire.ForkService().GetFork(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get fork: %w", err)
		}

		fmt.Printf("%s [%s] %d%%\n", job.ID, colorStatus(string(job.Status)), job.Progress)
		fmt.Printf("  Source:  %s\n", job.SourceProjectID)
		fmt.Printf("  Dest:    %s\n", job.ForkProjectID)
		fmt.Printf("  Files:   %d/%d\n", job.ProcessedFiles, job.TotalFiles)
		if job.CurrentFileID != "" {
			fmt.Printf("  Cursor:  %s\n", job.CurrentFileID)
		}
		if job.ErrMsg != "" {
			fmt.Printf("  Error:   %s\n", job.ErrMsg)
		}
		fmt.Printf("  Created: %s\n", formatTime(job.CreatedAt))
		return nil
	},
}

var forkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's fork jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		jobs, err := wire.ForkService().ListForks(cmd.Context(), userID, limit)
		if err != nil {
			return fmt.Errorf("failed to list forks: %w", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No forks found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSOURCE\tDEST\tPROGRESS\tCREATED")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n", job.ID, colorStatus(string(job.Status)),
				job.SourceProjectID, job.ForkProjectID, job.Progress, formatTime(job.CreatedAt))
		}
		return w.Flush()
	},
}

func printForkOutcome(cmd *cobra.Command, forkID string) error {
	job, err := wire.ForkService().GetFork(cmd.Context(), forkID)
	if err != nil {
		return fmt.Errorf("failed to get fork: %w", err)
	}
	fmt.Printf("✓ Fork %s %s (%d/%d files)\n", job.ID, colorStatus(string(job.Status)), job.ProcessedFiles, job.TotalFiles)
	if job.ErrMsg != "" {
		fmt.Printf("  Error: %s\n", job.ErrMsg)
	}
	return nil
}

func init() {
	forkStartCmd.Flags().String("user", "", "Requesting user ID")
	forkStartCmd.Flags().String("source", "", "Source project ID (required)")
	forkStartCmd.Flags().String("dest", "", "Destination project ID (required)")
	forkStartCmd.Flags().String("workspace", "", "Workspace ID")
	forkStartCmd.Flags().Bool("no-wait", false, "Create the job but leave the copy to the daemon")

	forkResumeCmd.Flags().Bool("no-wait", false, "Create the job but leave the copy to the daemon")

	forkListCmd.Flags().String("user", "", "User ID (required)")
	forkListCmd.Flags().Int("limit", 20, "Maximum forks to list")

	forkCmd.AddCommand(forkStartCmd)
	forkCmd.AddCommand(forkResumeCmd)
	forkCmd.AddCommand(forkRunCmd)
	forkCmd.AddCommand(forkCancelCmd)
	forkCmd.AddCommand(forkShowCmd)
	forkCmd.AddCommand(forkListCmd)
}

// ForkCmd returns the fork command
func ForkCmd() *cobra.Command {
	return forkCmd
}
