package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/cli"
	"github.com/example/atelier/internal/ctxutil"
	"github.com/example/atelier/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "atelier",
		Short:   "Atelier - coordination core for sandboxed agent work",
		Version: version.String(),
		Long: `Atelier coordinates long-running agent tasks in isolated sandboxes.
It owns the task state machine, the per-topic message queue, message
schedules, project forks, and file-storage maintenance.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			actor, _ := cmd.Flags().GetString("actor")
			if actor != "" {
				cmd.SetContext(ctxutil.WithActorID(cmd.Context(), actor))
			}
		},
	}
	rootCmd.PersistentFlags().String("actor", "", "Acting user recorded in the audit log")

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.TopicCmd())
	rootCmd.AddCommand(cli.TaskCmd())
	rootCmd.AddCommand(cli.MessageCmd())
	rootCmd.AddCommand(cli.ScheduleCmd())
	rootCmd.AddCommand(cli.ForkCmd())
	rootCmd.AddCommand(cli.DedupCmd())
	rootCmd.AddCommand(cli.VersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
