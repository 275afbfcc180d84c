package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage message schedules",
	Long:  "Schedules register triggers with the external crontab service; each fire enqueues one message on the target topic.",
}

var scheduleCreateCmd = &cobra.Command{
	Use:   "create [payload]",
	Short: "Create a schedule and register its trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		topicID, _ := cmd.Flags().GetString("topic")
		projectID, _ := cmd.Flags().GetString("project")
		workspaceID, _ := cmd.Flags().GetString("workspace")
		timeSpec, _ := cmd.Flags().GetString("spec")
		oneShot, _ := cmd.Flags().GetBool("one-shot")
		if topicID == "" || timeSpec == "" {
			return fmt.Errorf("--topic and --spec are required")
		}

		sched, err := wire.ScheduleService().CreateSchedule(cmd.Context(), primary.CreateScheduleRequest{
			UserID:      userID,
			TopicID:     topicID,
			ProjectID:   projectID,
			WorkspaceID: workspaceID,
			Payload:     args[0],
			TimeSpec:    timeSpec,
			OneShot:     oneShot,
		})
		if err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}

		kind := "recurring"
		if sched.OneShot {
			kind = "one-shot"
		}
		fmt.Printf("✓ Created %s schedule %s (%s) on topic %s\n", kind, sched.ID, sched.TimeSpec, sched.TopicID)
		return nil
	},
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show [schedule-id]",
	Short: "Show schedule details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := wire.ScheduleService().GetSchedule(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get schedule: %w", err)
		}

		fmt.Printf("%s (%s)\n", sched.ID, sched.TimeSpec)
		fmt.Printf("  Topic:    %s\n", sched.TopicID)
		fmt.Printf("  Payload:  %s\n", sched.Payload)
		fmt.Printf("  One-shot: %v\n", sched.OneShot)
		fmt.Printf("  Enabled:  %v\n", sched.Enabled)
		fmt.Printf("  Completed: %v\n", sched.Completed)
		if sched.CrontabTriggerID != "" {
			fmt.Printf("  Trigger:  %s\n", sched.CrontabTriggerID)
		}
		return nil
	},
}

var scheduleUpdateCmd = &cobra.Command{
	Use:   "update [schedule-id]",
	Short: "Update a schedule's payload, spec, or enabled flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, _ := cmd.Flags().GetString("payload")
		timeSpec, _ := cmd.Flags().GetString("spec")
		enabled, _ := cmd.Flags().GetBool("enabled")

		sched, err := wire.ScheduleService().UpdateSchedule(cmd.Context(), primary.UpdateScheduleRequest{
			ScheduleID: args[0],
			Payload:    payload,
			TimeSpec:   timeSpec,
			Enabled:    enabled,
		})
		if err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}
		fmt.Printf("✓ Updated schedule %s (%s, enabled=%v)\n", sched.ID, sched.TimeSpec, sched.Enabled)
		return nil
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete [schedule-id]",
	Short: "Delete a schedule and unregister its trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.ScheduleService().DeleteSchedule(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}
		fmt.Printf("✓ Deleted schedule %s\n", args[0])
		return nil
	},
}

var scheduleFireCmd = &cobra.Command{
	Use:   "fire [schedule-id]",
	Short: "Fire a schedule as the crontab service would",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.ScheduleService().FireSchedule(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to fire schedule: %w", err)
		}
		fmt.Printf("✓ Fired schedule %s\n", args[0])
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's enabled schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		schedules, err := wire.ScheduleService().ListEnabled(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to list schedules: %w", err)
		}
		if len(schedules) == 0 {
			fmt.Println("No enabled schedules.")
			return nil
		}

		for _, sched := range schedules {
			kind := "recurring"
			if sched.OneShot {
				kind = "one-shot"
			}
			fmt.Printf("%s [%s] %s → topic %s\n", sched.ID, kind, sched.TimeSpec, sched.TopicID)
		}
		return nil
	},
}

func init() {
	scheduleCreateCmd.Flags().String("user", "", "Owning user ID")
	scheduleCreateCmd.Flags().String("topic", "", "Target topic ID (required)")
	scheduleCreateCmd.Flags().String("project", "", "Project ID")
	scheduleCreateCmd.Flags().String("workspace", "", "Workspace ID")
	scheduleCreateCmd.Flags().String("spec", "", "Cron expression, or RFC3339 deadline for one-shots (required)")
	scheduleCreateCmd.Flags().Bool("one-shot", false, "Complete the schedule after its first fire")

	scheduleUpdateCmd.Flags().String("payload", "", "New payload")
	scheduleUpdateCmd.Flags().String("spec", "", "New time spec")
	scheduleUpdateCmd.Flags().Bool("enabled", true, "Whether the schedule fires")

	scheduleListCmd.Flags().String("user", "", "User ID (required)")

	scheduleCmd.AddCommand(scheduleCreateCmd)
	scheduleCmd.AddCommand(scheduleShowCmd)
	scheduleCmd.AddCommand(scheduleUpdateCmd)
	scheduleCmd.AddCommand(scheduleDeleteCmd)
	scheduleCmd.AddCommand(scheduleFireCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
}

// ScheduleCmd returns the schedule command
func ScheduleCmd() *cobra.Command {
	return scheduleCmd
}
