package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Manage the per-topic message queue",
	Long:  "Enqueue, inspect, and resolve queued messages. Messages dispatch in execution-time order, one in-flight task per topic.",
}

var messageEnqueueCmd = &cobra.Command{
	Use:   "enqueue [payload]",
	Short: "Enqueue a pending message for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topicID, _ := cmd.Flags().GetString("topic")
		projectID, _ := cmd.Flags().GetString("project")
		userID, _ := cmd.Flags().GetString("user")
		notBeforeStr, _ := cmd.Flags().GetString("not-before")
		if topicID == "" {
			return fmt.Errorf("--topic is required")
		}

		var notBefore time.Time
		if notBeforeStr != "" {
			parsed, err := time.Parse(time.RFC3339, notBeforeStr)
			if err != nil {
				return fmt.Errorf("invalid --not-before (want RFC3339): %w", err)
			}
			notBefore = parsed
		}

		msg, err := wire.QueueService().Enqueue(cmd.Context(), primary.EnqueueRequest{
			TopicID:   topicID,
			ProjectID: projectID,
			UserID:    userID,
			Payload:   args[0],
			NotBefore: notBefore,
		})
		if err != nil {
			return fmt.Errorf("failed to enqueue message: %w", err)
		}

		fmt.Printf("✓ Enqueued %s on topic %s (eligible %s)\n", msg.ID, msg.TopicID, formatTime(msg.ExceptExecuteTime))
		return nil
	},
}

var messageShowCmd = &cobra.Command{
	Use:   "show [message-id]",
	Short: "Show message details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := wire.QueueService().GetMessage(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get message: %w", err)
		}

		fmt.Printf("%s [%s]\n", msg.ID, colorStatus(string(msg.Status)))
		fmt.Printf("  Topic:    %s\n", msg.TopicID)
		fmt.Printf("  Eligible: %s\n", formatTime(msg.ExceptExecuteTime))
		fmt.Printf("  Payload:  %s\n", msg.Payload)
		if msg.ErrMsg != "" {
			fmt.Printf("  Error:    %s\n", msg.ErrMsg)
		}
		return nil
	},
}

var messageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a topic's messages in processing order",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicID, _ := cmd.Flags().GetString("topic")
		limit, _ := cmd.Flags().GetInt("limit")
		if topicID == "" {
			return fmt.Errorf("--topic is required")
		}

		messages, err := wire.QueueService().ListMessages(cmd.Context(), topicID, limit)
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}
		if len(messages) == 0 {
			fmt.Println("No messages found.")
			return nil
		}

		for _, msg := range messages {
			fmt.Printf("%s [%s] eligible %s\n", msg.ID, colorStatus(string(msg.Status)), formatTime(msg.ExceptExecuteTime))
		}
		return nil
	},
}

var messageNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Peek at the topic's next eligible message",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicID, _ := cmd.Flags().GetString("topic")
		if topicID == "" {
			return fmt.Errorf("--topic is required")
		}

		msg, err := wire.QueueService().DequeueNext(cmd.Context(), topicID)
		if err != nil {
			return fmt.Errorf("failed to peek queue: %w", err)
		}
		if msg == nil {
			fmt.Println("No eligible message.")
			return nil
		}
		fmt.Printf("%s eligible %s: %s\n", msg.ID, formatTime(msg.ExceptExecuteTime), msg.Payload)
		return nil
	},
}

var messageCompleteCmd = &cobra.Command{
	Use:   "complete [message-id]",
	Short: "Mark an in-progress message completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.QueueService().MarkCompleted(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to complete message: %w", err)
		}
		fmt.Printf("✓ Message %s completed\n", args[0])
		return nil
	},
}

var messageFailCmd = &cobra.Command{
	Use:   "fail [message-id]",
	Short: "Mark a message failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		errMsg, _ := cmd.Flags().GetString("error")

		if err := wire.QueueService().MarkFailed(cmd.Context(), args[0], errMsg); err != nil {
			return fmt.Errorf("failed to fail message: %w", err)
		}
		fmt.Printf("✓ Message %s failed\n", args[0])
		return nil
	},
}

var messageRetryCmd = &cobra.Command{
	Use:   "retry [message-id]",
	Short: "Reset a failed message to pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notBeforeStr, _ := cmd.Flags().GetString("not-before")

		notBefore := time.Now().UTC()
		if notBeforeStr != "" {
			parsed, err := time.Parse(time.RFC3339, notBeforeStr)
			if err != nil {
				return fmt.Errorf("invalid --not-before (want RFC3339): %w", err)
			}
			notBefore = parsed
		}

		if err := wire.QueueService().RetryMessage(cmd.Context(), args[0], notBefore); err != nil {
			return fmt.Errorf("failed to retry message: %w", err)
		}
		fmt.Printf("✓ Message %s reset to pending (eligible %s)\n", args[0], formatTime(notBefore))
		return nil
	},
}

var messageDelayCmd = &cobra.Command{
	Use:   "delay",
	Short: "Push back every pending message in a topic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topicID, _ := cmd.Flags().GetString("topic")
		by, _ := cmd.Flags().GetDuration("by")
		if topicID == "" {
			return fmt.Errorf("--topic is required")
		}

		shifted, err := wire.QueueService().Delay(cmd.Context(), topicID, by)
		if err != nil {
			return fmt.Errorf("failed to delay messages: %w", err)
		}
		fmt.Printf("✓ Delayed %d pending message(s) by %s\n", shifted, by)
		return nil
	},
}

var messageDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch the topic's next eligible message now",
	RunE: func(cmd *cobra.Command, args []string) error {
		topicID, _ := cmd.Flags().GetString("topic")
		if topicID == "" {
			return fmt.Errorf("--topic is required")
		}

		task, err := wire.QueueService().DispatchTopic(cmd.Context(), topicID)
		if err != nil {
			return fmt.Errorf("failed to dispatch topic: %w", err)
		}
		if task == nil {
			fmt.Println("Nothing dispatched (no eligible message, or a task is already active).")
			return nil
		}
		fmt.Printf("✓ Dispatched task %s (sandbox %s)\n", task.ID, task.SandboxTaskID)
		return nil
	},
}

var messagePollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one compensation pass over eligible topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatched, err := wire.QueueService().PollOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("compensation poll failed: %w", err)
		}
		fmt.Printf("✓ Dispatched %d task(s)\n", dispatched)
		return nil
	},
}

func init() {
	messageEnqueueCmd.Flags().String("topic", "", "Topic ID (required)")
	messageEnqueueCmd.Flags().String("project", "", "Project ID")
	messageEnqueueCmd.Flags().String("user", "", "User ID")
	messageEnqueueCmd.Flags().String("not-before", "", "Earliest dispatch time (RFC3339, default now)")

	messageListCmd.Flags().String("topic", "", "Topic ID (required)")
	messageListCmd.Flags().Int("limit", 20, "Maximum messages to list")

	messageNextCmd.Flags().String("topic", "", "Topic ID (required)")

	messageFailCmd.Flags().String("error", "", "Error message to retain")
	messageRetryCmd.Flags().String("not-before", "", "New earliest dispatch time (RFC3339, default now)")

	messageDelayCmd.Flags().String("topic", "", "Topic ID (required)")
	messageDelayCmd.Flags().Duration("by", time.Minute, "How far to push execution times")

	messageDispatchCmd.Flags().String("topic", "", "Topic ID (required)")

	messageCmd.AddCommand(messageEnqueueCmd)
	messageCmd.AddCommand(messageShowCmd)
	messageCmd.AddCommand(messageListCmd)
	messageCmd.AddCommand(messageNextCmd)
	messageCmd.AddCommand(messageCompleteCmd)
	messageCmd.AddCommand(messageFailCmd)
	messageCmd.AddCommand(messageRetryCmd)
	messageCmd.AddCommand(messageDelayCmd)
	messageCmd.AddCommand(messageDispatchCmd)
	messageCmd.AddCommand(messagePollCmd)
}

// MessageCmd returns the message command
func MessageCmd() *cobra.Command {
	return messageCmd
}
