package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
	"github.com/abhisek/eikengen/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-topic selection statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		gradeVal, _ := cmd.Flags().GetString("grade")
		typeVal, _ := cmd.Flags().GetString("type")

		var f store.StatsFilter
		if gradeVal != "" {
			g, err := eiken.ParseGrade(gradeVal)
			if err != nil {
				return err
			}
			f.Grade = g
		}
		if typeVal != "" {
			qt, err := eiken.ParseQuestionType(typeVal)
			if err != nil {
				return err
			}
			f.QuestionType = qt
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		stats, err := e.store.StatsRepo().ListStatistics(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("query statistics: %w", err)
		}
		if len(stats) == 0 {
			fmt.Println("No selections recorded yet.")
			return nil
		}

		fmt.Printf("%-5s  %-24s  %-14s  %6s  %6s  %6s  %6s  %8s  %s\n",
			"Grade", "Topic", "Type", "Picks", "OK", "Fail", "Rate", "Avg s", "Last")
		fmt.Println(theme.Rule(104))

		var picks, ok, fail int
		for _, st := range stats {
			last := "-"
			if st.LastSelectedAt != nil {
				last = st.LastSelectedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%-5s  %-24s  %-14s  %6d  %6d  %6d  %5.0f%%  %8.1f  %s\n",
				st.Grade, truncate(st.TopicCode, 24), st.QuestionType,
				st.SelectionCount, st.SuccessCount, st.FailureCount,
				100*st.SuccessRate(), st.AvgCompletionMs/1000, last)
			picks += st.SelectionCount
			ok += st.SuccessCount
			fail += st.FailureCount
		}
		fmt.Println(theme.Rule(104))
		fmt.Printf("%-5s  %-24s  %-14s  %6d  %6d  %6d\n", "", "TOTAL", "", picks, ok, fail)
		return nil
	},
}

func init() {
	statsCmd.Flags().String("grade", "", "Filter by topic grade")
	statsCmd.Flags().String("type", "", "Filter by question type")
}
