package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/selection"
	"github.com/abhisek/eikengen/internal/ui/theme"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select a topic without generating content",
	Long: `Select runs the topic cascade for a student and prints the choice.
Nothing is recorded unless --accept is given.

With --repeat N the selection is run N times and the pick distribution is
shown instead, which is useful to check the exploration rate.`,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().String("student", "", "Student ID (required)")
	selectCmd.Flags().String("grade", "", "Eiken grade (required)")
	selectCmd.Flags().String("type", "", "Question type (required)")
	selectCmd.Flags().String("session", "", "Session ID")
	selectCmd.Flags().Bool("explore", false, "Force the exploration branch")
	selectCmd.Flags().Uint64("seed", 0, "Seed for reproducible selection (0 = random)")
	selectCmd.Flags().Int("repeat", 1, "Number of selections to run")
	selectCmd.Flags().Bool("accept", false, "Record the selection as an accepted item")
	_ = selectCmd.MarkFlagRequired("student")
	_ = selectCmd.MarkFlagRequired("grade")
	_ = selectCmd.MarkFlagRequired("type")
}

func runSelect(cmd *cobra.Command, args []string) error {
	student, _ := cmd.Flags().GetString("student")
	gradeVal, _ := cmd.Flags().GetString("grade")
	typeVal, _ := cmd.Flags().GetString("type")
	session, _ := cmd.Flags().GetString("session")
	explore, _ := cmd.Flags().GetBool("explore")
	seed, _ := cmd.Flags().GetUint64("seed")
	repeat, _ := cmd.Flags().GetInt("repeat")
	accept, _ := cmd.Flags().GetBool("accept")

	grade, err := eiken.ParseGrade(gradeVal)
	if err != nil {
		return err
	}
	qt, err := eiken.ParseQuestionType(typeVal)
	if err != nil {
		return err
	}
	if accept && repeat > 1 {
		return fmt.Errorf("--accept records a single selection; drop --repeat")
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	var policy *selection.Policy
	if seed != 0 {
		policy = selection.NewSeededPolicy(e.cfg.Selection.Epsilon, seed)
	}
	sel := newSelector(e, policy)
	req := selection.Request{
		StudentID:        student,
		Grade:            grade,
		QuestionType:     qt,
		SessionID:        session,
		ForceExploration: explore,
	}

	ctx := cmd.Context()
	if repeat > 1 {
		return selectDistribution(cmd, sel, req, repeat)
	}

	s, err := sel.Select(ctx, req)
	if err != nil {
		return err
	}
	t := s.Topic
	fmt.Println(theme.Title.Render(t.LabelEN))
	fmt.Println(theme.Field("Code", t.Code))
	fmt.Println(theme.Field("Grade", t.Grade.Label()))
	fmt.Println(theme.Field("Method", string(s.Method)))
	fmt.Println(theme.Field("Stage", fmt.Sprintf("%d (%s)", s.FallbackStage, s.StageName)))
	fmt.Println(theme.Field("Candidates", fmt.Sprint(s.CandidatesConsidered)))
	fmt.Println(theme.Field("Weight", fmt.Sprintf("%.3f", s.WeightScore)))
	fmt.Println(theme.Field("Fit", fmt.Sprintf("%.2f", s.SuitabilityScore)))
	fmt.Println(theme.Field("Final", fmt.Sprintf("%.3f", s.FinalScore)))

	if accept {
		if _, err := newRecorder(e).Record(ctx, selection.Feedback{Request: req, Topic: t, Accepted: true}); err != nil {
			return err
		}
		fmt.Println(theme.Pass.Render("recorded as accepted"))
	}
	return nil
}

func selectDistribution(cmd *cobra.Command, sel *selection.Selector, req selection.Request, n int) error {
	picks := make(map[string]int)
	var explored int
	for range n {
		s, err := sel.Select(cmd.Context(), req)
		if err != nil {
			return err
		}
		picks[s.Topic.Code]++
		if s.Method == selection.MethodExploration {
			explored++
		}
	}

	codes := make([]string, 0, len(picks))
	for c := range picks {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		if picks[codes[i]] != picks[codes[j]] {
			return picks[codes[i]] > picks[codes[j]]
		}
		return codes[i] < codes[j]
	})

	fmt.Printf("%-28s  %6s  %6s\n", "Topic", "Picks", "Share")
	fmt.Println(theme.Rule(44))
	for _, c := range codes {
		fmt.Printf("%-28s  %6d  %5.1f%%\n", truncate(c, 28), picks[c], 100*float64(picks[c])/float64(n))
	}
	fmt.Println(theme.Rule(44))
	fmt.Printf("exploration rate: %.1f%% over %d selections\n", 100*float64(explored)/float64(n), n)
	return nil
}
