package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Manage topics (conversation threads)",
}

var topicCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a topic in a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		userID, _ := cmd.Flags().GetString("user")
		if projectID == "" {
			return fmt.Errorf("--project is required")
		}

		topic, err := wire.TopicService().CreateTopic(cmd.Context(), primary.CreateTopicRequest{
			ProjectID: projectID,
			UserID:    userID,
			Title:     args[0],
		})
		if err != nil {
			return fmt.Errorf("failed to create topic: %w", err)
		}

		fmt.Printf("✓ Created topic %s: %s\n", topic.ID, topic.Title)
		fmt.Printf("  Project: %s\n", topic.ProjectID)
		return nil
	},
}

var topicShowCmd = &cobra.Command{
	Use:   "show [topic-id]",
	Short: "Show topic details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, err := wire.TopicService().GetTopic(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get topic: %w", err)
		}

		fmt.Printf("%s: %s\n", topic.ID, topic.Title)
		fmt.Printf("  Project: %s\n", topic.ProjectID)
		if topic.UserID != "" {
			fmt.Printf("  User:    %s\n", topic.UserID)
		}
		if topic.CurrentTaskID != "" {
			fmt.Printf("  Current task: %s [%s]\n", topic.CurrentTaskID, colorStatus(string(topic.CurrentTaskStatus)))
		} else {
			fmt.Println("  Current task: none")
		}
		if topic.SandboxSessionID != "" {
			fmt.Printf("  Sandbox session: %s\n", topic.SandboxSessionID)
		}
		fmt.Printf("  Created: %s\n", formatTime(topic.CreatedAt))
		return nil
	},
}

var topicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		topics, err := wire.TopicService().ListTopics(cmd.Context(), primary.TopicFilters{
			ProjectID: projectID,
			UserID:    userID,
			Limit:     limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list topics: %w", err)
		}
		if len(topics) == 0 {
			fmt.Println("No topics found.")
			return nil
		}

		for _, topic := range topics {
			fmt.Printf("%s: %s (%s)\n", topic.ID, topic.Title, topic.ProjectID)
			if topic.CurrentTaskID != "" {
				fmt.Printf("   Current task: %s [%s]\n", topic.CurrentTaskID, colorStatus(string(topic.CurrentTaskStatus)))
			}
		}
		return nil
	},
}

func init() {
	topicCreateCmd.Flags().String("project", "", "Project ID (required)")
	topicCreateCmd.Flags().String("user", "", "Owning user ID")

	topicListCmd.Flags().String("project", "", "Filter by project ID")
	topicListCmd.Flags().String("user", "", "Filter by user ID")
	topicListCmd.Flags().Int("limit", 20, "Maximum topics to list")

	topicCmd.AddCommand(topicCreateCmd)
	topicCmd.AddCommand(topicShowCmd)
	topicCmd.AddCommand(topicListCmd)
}

// TopicCmd returns the topic command
func TopicCmd() *cobra.Command {
	return topicCmd
}
