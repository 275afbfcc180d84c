package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Maintenance sweeps over file storage",
}

var dedupSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Resolve duplicate file keys until none remain",
	Long:  "For each duplicate key, one survivor is kept (live attachment beats age), children are repointed, and the rest are soft-deleted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		fileKey, _ := cmd.Flags().GetString("key")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		report, err := wire.DedupService().Sweep(cmd.Context(), primary.SweepRequest{
			ProjectID: projectID,
			FileKey:   fileKey,
			BatchSize: batchSize,
		})
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		fmt.Printf("✓ Sweep done: %d key(s) resolved, %d row(s) deleted, %d repointed, %d flag(s) repaired\n",
			report.KeysResolved, report.RowsDeleted, report.RowsRepointed, report.FlagsRepaired)
		if report.KeysSkipped > 0 {
			fmt.Printf("  %d key(s) skipped after merge failures; rerun to retry\n", report.KeysSkipped)
		}
		return nil
	},
}

func init() {
	dedupSweepCmd.Flags().String("project", "", "Limit the sweep to one project")
	dedupSweepCmd.Flags().String("key", "", "Limit the sweep to one file key")
	dedupSweepCmd.Flags().Int("batch-size", 0, "Duplicate keys fetched per query (default from config)")

	dedupCmd.AddCommand(dedupSweepCmd)
}

// DedupCmd returns the dedup command
func DedupCmd() *cobra.Command {
	return dedupCmd
}
