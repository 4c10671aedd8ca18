package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/catalog"
	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/generation"
	"github.com/abhisek/eikengen/internal/lexicon"
	"github.com/abhisek/eikengen/internal/llm"
	"github.com/abhisek/eikengen/internal/logging"
	"github.com/abhisek/eikengen/internal/store"
	"github.com/abhisek/eikengen/internal/ui/theme"
	"github.com/abhisek/eikengen/internal/validation"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview generated items for one topic (no database)",
	Long: `Generate items for a built-in catalog topic and show how each one fares
in the validation gate.

This is a stateless developer tool: no database, no selection, no feedback.
Useful for evaluating prompt quality and validator thresholds.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("topic", "", "Topic code from the built-in catalog (required)")
	previewCmd.Flags().String("grade", "", "Eiken grade (required)")
	previewCmd.Flags().String("type", "", "Question type (required)")
	previewCmd.Flags().Int("count", 3, "Number of items to generate")
	_ = previewCmd.MarkFlagRequired("topic")
	_ = previewCmd.MarkFlagRequired("grade")
	_ = previewCmd.MarkFlagRequired("type")
}

func runPreview(cmd *cobra.Command, args []string) error {
	code, _ := cmd.Flags().GetString("topic")
	gradeVal, _ := cmd.Flags().GetString("grade")
	typeVal, _ := cmd.Flags().GetString("type")
	count, _ := cmd.Flags().GetInt("count")

	grade, err := eiken.ParseGrade(gradeVal)
	if err != nil {
		return err
	}
	qt, err := eiken.ParseQuestionType(typeVal)
	if err != nil {
		return err
	}
	topic, err := findTopic(grade, code)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	llmCfg := cfg.LLM
	if err := llmCfg.Validate(); err != nil {
		discovered, ok := llm.DiscoverConfig(llmCfg)
		if !ok {
			return fmt.Errorf("LLM provider: %w", err)
		}
		llmCfg = discovered
	}

	// No EventRepo: request logging is skipped.
	ctx := llm.WithPurpose(cmd.Context(), llm.PurposePreview)
	provider, err := llm.NewProvider(ctx, llmCfg, nil, logging.Nop())
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}
	gen := generation.NewLLMGenerator(provider, generation.GeneratorConfig{
		MaxTokens:   llmCfg.MaxTokens,
		Temperature: llmCfg.Temperature,
	})

	entries, err := lexicon.Seed()
	if err != nil {
		return err
	}
	lemma, err := lexicon.NewLemmatizer()
	if err != nil {
		return err
	}
	analyzer := lexicon.NewAnalyzer(lexicon.NewMemory(entries...), lemma)
	vc := cfg.Validation
	gate := validation.NewGate(nil,
		validation.NewVocabularyValidator(analyzer, vc.Vocabulary),
		validation.NewComplexityValidator(analyzer, vc.Complexity),
		validation.NewDiversityValidator(validation.NewMemoryStore(1, time.Hour), vc.Diversity),
	)
	target := validation.Target{Grade: grade, QuestionType: qt, SessionID: uuid.NewString()}

	fmt.Println(theme.Title.Render(fmt.Sprintf("%s · %s · %s", topic.LabelEN, grade.Label(), qt)))
	fmt.Printf("Generating %d items...\n\n", count)

	var accepted int
	var hint string
	for i := 1; i <= count; i++ {
		q, err := gen.Generate(ctx, generation.Input{
			Topic:        topic,
			Grade:        grade,
			QuestionType: qt,
			Guidance:     gate.Guidance(ctx, target),
			Hint:         hint,
		})
		if err != nil {
			fmt.Printf("Item %d: %s %v\n\n", i, theme.Fail.Render("generation failed:"), err)
			continue
		}

		results, err := gate.Check(ctx, q, target)
		var rej *validation.RejectedError
		switch {
		case errors.As(err, &rej):
			hint = rej.Diagnostic
		case err != nil:
			return err
		default:
			accepted++
			hint = ""
		}

		fmt.Printf("── Item %d/%d ──  %s\n", i, count, verdicts(generation.Item{Results: results}))
		fmt.Println(theme.Card.Render(renderQuestion(q)))
		if rej != nil {
			fmt.Println(theme.Warn.Render(rej.Diagnostic))
		}
		fmt.Println()
	}

	fmt.Printf("── Summary: %d/%d passed the gate ──\n", accepted, count)
	return nil
}

// findTopic looks a topic up in the built-in catalog.
func findTopic(grade eiken.Grade, code string) (store.Topic, error) {
	for _, t := range catalog.Topics() {
		if t.Grade == grade && t.Code == code {
			return t, nil
		}
	}
	return store.Topic{}, fmt.Errorf("no topic %q for %s; see: eikengen topics list --grade %s", code, grade.Label(), grade)
}
