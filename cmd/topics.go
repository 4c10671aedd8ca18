package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/catalog"
	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/ui/theme"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage the topic catalog",
}

var topicsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install or refresh the built-in topic catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := catalog.Seed(cmd.Context(), e.store.TopicRepo())
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d topics and %d suitability scores.\n", res.Topics, res.Suitability)
		return nil
	},
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List topics, optionally for one grade",
	RunE: func(cmd *cobra.Command, args []string) error {
		gradeVal, _ := cmd.Flags().GetString("grade")
		var grade eiken.Grade
		if gradeVal != "" {
			g, err := eiken.ParseGrade(gradeVal)
			if err != nil {
				return err
			}
			grade = g
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		topics, err := e.store.TopicRepo().ListTopics(cmd.Context(), grade)
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		if len(topics) == 0 {
			fmt.Println("No topics found. Run: eikengen topics seed")
			return nil
		}

		fmt.Printf("%-6s  %-26s  %-32s  %6s  %5s  %s\n",
			"Grade", "Code", "Label", "Weight", "Freq", "Active")
		fmt.Println(theme.Rule(92))
		for _, t := range topics {
			fmt.Printf("%-6s  %-26s  %-32s  %6.2f  %5.2f  %s\n",
				t.Grade, truncate(t.Code, 26), truncate(t.LabelEN, 32),
				t.Weight, t.OfficialFrequency, theme.Verdict(t.Active))
		}
		fmt.Printf("\n%d topics\n", len(topics))
		return nil
	},
}

var topicsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <code>",
	Short: "Stop selecting a topic (topics are never deleted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTopicActive(cmd, args[0], false)
	},
}

var topicsActivateCmd = &cobra.Command{
	Use:   "activate <code>",
	Short: "Make a deactivated topic selectable again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTopicActive(cmd, args[0], true)
	},
}

func setTopicActive(cmd *cobra.Command, code string, active bool) error {
	gradeVal, _ := cmd.Flags().GetString("grade")
	grade, err := eiken.ParseGrade(gradeVal)
	if err != nil {
		return err
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.TopicRepo().SetActive(cmd.Context(), grade, strings.TrimSpace(code), active); err != nil {
		return err
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Printf("Topic %s/%s %s.\n", grade, code, state)
	return nil
}

func init() {
	topicsListCmd.Flags().String("grade", "", "Filter by grade")
	topicsDeactivateCmd.Flags().String("grade", "", "Grade of the topic (required)")
	topicsActivateCmd.Flags().String("grade", "", "Grade of the topic (required)")
	_ = topicsDeactivateCmd.MarkFlagRequired("grade")
	_ = topicsActivateCmd.MarkFlagRequired("grade")

	topicsCmd.AddCommand(topicsSeedCmd)
	topicsCmd.AddCommand(topicsListCmd)
	topicsCmd.AddCommand(topicsDeactivateCmd)
	topicsCmd.AddCommand(topicsActivateCmd)
}
