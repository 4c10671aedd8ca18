package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
	"github.com/abhisek/eikengen/internal/ui/theme"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Inspect and edit per-student topic exclusions",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklist entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		all, _ := cmd.Flags().GetBool("all")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		entries, err := e.store.BlacklistRepo().ListBlacklist(cmd.Context(), student)
		if err != nil {
			return fmt.Errorf("list blacklist: %w", err)
		}

		now := time.Now()
		fmt.Printf("%-14s  %-5s  %-14s  %-24s  %-22s  %5s  %s\n",
			"Student", "Grade", "Type", "Topic", "Reason", "Fails", "Expires")
		fmt.Println(theme.Rule(110))
		shown := 0
		for _, b := range entries {
			active := b.ActiveAt(now)
			if !active && !all {
				continue
			}
			fmt.Printf("%-14s  %-5s  %-14s  %-24s  %-22s  %5d  %s\n",
				truncate(b.StudentID, 14), b.Grade, b.QuestionType, truncate(b.TopicCode, 24),
				b.Reason, b.FailureCount, formatExpiry(b, now))
			shown++
		}
		if shown == 0 {
			fmt.Println("No active entries.")
		}
		return nil
	},
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Blacklist a topic for a student",
	Long: `Add records a failure for the topic and upserts its blacklist entry.
Repeated additions for the same key lengthen the exclusion up to twice the
reason's base TTL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		gradeVal, _ := cmd.Flags().GetString("grade")
		typeVal, _ := cmd.Flags().GetString("type")
		topic, _ := cmd.Flags().GetString("topic")
		reason, _ := cmd.Flags().GetString("reason")

		grade, err := eiken.ParseGrade(gradeVal)
		if err != nil {
			return err
		}
		qt, err := eiken.ParseQuestionType(typeVal)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		key := store.BlacklistKey{StudentID: student, Grade: grade, TopicCode: topic, QuestionType: qt}
		entry, err := newRecorder(e).AddToBlacklist(cmd.Context(), key, reason)
		if err != nil {
			return err
		}
		fmt.Printf("Blacklisted %s for %s (%s), failure #%d, %s.\n",
			topic, student, reason, entry.FailureCount, formatExpiry(*entry, time.Now()))
		return nil
	},
}

func formatExpiry(b store.BlacklistEntry, now time.Time) string {
	switch {
	case b.ExpiresAt == nil:
		return theme.Fail.Render("permanent")
	case !b.ActiveAt(now):
		return theme.Label.Render("expired " + b.ExpiresAt.Local().Format("2006-01-02"))
	default:
		return "until " + b.ExpiresAt.Local().Format("2006-01-02 15:04")
	}
}

func init() {
	blacklistListCmd.Flags().String("student", "", "Filter by student ID")
	blacklistListCmd.Flags().Bool("all", false, "Include expired entries")

	blacklistAddCmd.Flags().String("student", "", "Student ID (required)")
	blacklistAddCmd.Flags().String("grade", "", "Requested grade (required)")
	blacklistAddCmd.Flags().String("type", "", "Question type (required)")
	blacklistAddCmd.Flags().String("topic", "", "Topic code (required)")
	blacklistAddCmd.Flags().String("reason", "student_uninterested", "Blacklist reason")
	for _, f := range []string{"student", "grade", "type", "topic"} {
		_ = blacklistAddCmd.MarkFlagRequired(f)
	}

	blacklistCmd.AddCommand(blacklistListCmd)
	blacklistCmd.AddCommand(blacklistAddCmd)
}
