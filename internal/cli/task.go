package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (sandbox execution attempts)",
	Long:  "Create, inspect, and transition tasks. A topic holds at most one non-terminal task at a time.",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a pending task for a topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicID, _ := cmd.Flags().GetString("topic")
		projectID, _ := cmd.Flags().GetString("project")
		if topicID == "" {
			return fmt.Errorf("--topic is required")
		}

		task, err := wire.TaskService().CreateTask(cmd.Context(), primary.CreateTaskRequest{
			TopicID:   topicID,
			ProjectID: projectID,
		})
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		fmt.Printf("✓ Created task %s for topic %s [%s]\n", task.ID, task.TopicID, colorStatus(string(task.Status)))
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := wire.TaskService().GetTask(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		fmt.Printf("%s [%s]\n", task.ID, colorStatus(string(task.Status)))
		fmt.Printf("  Topic:   %s\n", task.TopicID)
		fmt.Printf("  Project: %s\n", task.ProjectID)
		if task.SandboxTaskID != "" {
			fmt.Printf("  Sandbox: %s\n", task.SandboxTaskID)
		}
		if task.ErrMsg != "" {
			fmt.Printf("  Error:   %s\n", task.ErrMsg)
		}
		fmt.Printf("  Created: %s\n", formatTime(task.CreatedAt))
		fmt.Printf("  Updated: %s\n", formatTime(task.UpdatedAt))
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a topic's tasks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicID, _ := cmd.Flags().GetString("topic")
		limit, _ := cmd.Flags().GetInt("limit")
		if topicID == "" {
			return fmt.Errorf("--topic is required")
		}

		tasks, err := wire.TaskService().ListTasks(cmd.Context(), topicID, limit)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		for _, task := range tasks {
			fmt.Printf("%s [%s] %s\n", task.ID, colorStatus(string(task.Status)), formatTime(task.CreatedAt))
			if task.ErrMsg != "" {
				fmt.Printf("   Error: %s\n", task.ErrMsg)
			}
		}
		return nil
	},
}

var taskTransitionCmd = &cobra.Command{
	Use:   "transition [task-id] [status]",
	Short: "Transition a task to a new status",
	Long:  "Valid transitions: pending→running, pending→error, running→finished, running→error.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		errMsg, _ := cmd.Flags().GetString("error")

		task, err := wire.TaskService().TransitionTask(cmd.Context(), args[0], models.TaskStatus(args[1]), errMsg)
		if err != nil {
			return fmt.Errorf("failed to transition task: %w", err)
		}

		fmt.Printf("✓ Task %s is now %s\n", task.ID, colorStatus(string(task.Status)))
		return nil
	},
}

var taskCallbackCmd = &cobra.Command{
	Use:   "callback [sandbox-task-id] [status]",
	Short: "Apply a sandbox status callback",
	Long:  "Replays the webhook the sandbox sends on status changes, identified by the sandbox-assigned task ID.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		errMsg, _ := cmd.Flags().GetString("error")

		if err := wire.TaskService().HandleSandboxCallback(cmd.Context(), args[0], models.TaskStatus(args[1]), errMsg); err != nil {
			return fmt.Errorf("failed to apply callback: %w", err)
		}
		fmt.Printf("✓ Callback applied for sandbox task %s\n", args[0])
		return nil
	},
}

var taskReapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Error out running tasks with no recent updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			olderThan = wire.Config().StaleThreshold()
		}

		reaped, err := wire.TaskService().ReapStale(cmd.Context(), olderThan)
		if err != nil {
			return fmt.Errorf("failed to reap stale tasks: %w", err)
		}
		fmt.Printf("✓ Reaped %d stale task(s) older than %s\n", reaped, olderThan)
		return nil
	},
}

func init() {
	taskCreateCmd.Flags().String("topic", "", "Topic ID (required)")
	taskCreateCmd.Flags().String("project", "", "Project ID")

	taskListCmd.Flags().String("topic", "", "Topic ID (required)")
	taskListCmd.Flags().Int("limit", 20, "Maximum tasks to list")

	taskTransitionCmd.Flags().String("error", "", "Error message for error transitions")
	taskCallbackCmd.Flags().String("error", "", "Error message reported by the sandbox")

	taskReapCmd.Flags().Duration("older-than", 0, "Staleness threshold (default from config)")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskTransitionCmd)
	taskCmd.AddCommand(taskCallbackCmd)
	taskCmd.AddCommand(taskReapCmd)
}

// TaskCmd returns the task command
func TaskCmd() *cobra.Command {
	return taskCmd
}
