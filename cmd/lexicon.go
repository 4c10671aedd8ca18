package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/lexicon"
	"github.com/abhisek/eikengen/internal/store"
	"github.com/abhisek/eikengen/internal/ui/theme"
	"github.com/abhisek/eikengen/internal/validation"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Manage the CEFR word list and check texts against it",
}

var lexiconImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import a word list (header: lemma,level,zipf[,pos])",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		entries, err := lexicon.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		return upsertLexicon(cmd, entries)
	},
}

var lexiconSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import the built-in word list",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := lexicon.Seed()
		if err != nil {
			return err
		}
		return upsertLexicon(cmd, entries)
	},
}

var lexiconCheckCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Run the vocabulary and complexity checks on a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gradeVal, _ := cmd.Flags().GetString("grade")
		grade, err := eiken.ParseGrade(gradeVal)
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		analyzer, err := newAnalyzer(ctx, e)
		if err != nil {
			return err
		}

		vocab, err := validation.NewVocabularyValidator(analyzer, e.cfg.Validation.Vocabulary).Measure(ctx, text, grade)
		if err != nil {
			return err
		}
		cx, err := validation.NewComplexityValidator(analyzer, e.cfg.Validation.Complexity).Measure(ctx, text, grade)
		if err != nil {
			return err
		}

		fmt.Println(theme.Title.Render(fmt.Sprintf("%s (target %s / CEFR-J %s)", grade.Label(), vocab.Target, cx.Target)))
		fmt.Println()
		fmt.Printf("%s vocabulary\n", theme.Verdict(vocab.Valid))
		fmt.Println(theme.Field("Lemmas", fmt.Sprint(vocab.UniqueLemmas)))
		fmt.Println(theme.Field("Too hard", fmt.Sprintf("%.1f%% %s", 100*vocab.OutOfRangeRatio, listWords(vocab.OutOfRange))))
		fmt.Println(theme.Field("Rare", fmt.Sprintf("%.1f%% %s", 100*vocab.LowFrequencyRatio, listWords(vocab.LowFrequency))))
		fmt.Println()
		fmt.Printf("%s complexity\n", theme.Verdict(cx.Valid))
		fmt.Println(theme.Field("AvrDiff", fmt.Sprintf("%.2f", cx.AvrDiff)))
		fmt.Println(theme.Field("BperA", fmt.Sprintf("%.2f", cx.BperA)))
		fmt.Println(theme.Field("ARI", fmt.Sprintf("%.2f", cx.ARI)))
		fmt.Println(theme.Field("Estimate", fmt.Sprintf("%.2f → %s (%+d bands)", cx.Score, cx.Band, cx.Gap())))
		return nil
	},
}

func upsertLexicon(cmd *cobra.Command, entries []store.LexiconEntry) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := e.store.LexiconRepo().UpsertLexicon(cmd.Context(), entries)
	if err != nil {
		return fmt.Errorf("import lexicon: %w", err)
	}
	total, err := e.store.LexiconRepo().LexiconSize(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d entries (%d in lexicon).\n", n, total)
	return nil
}

func listWords(words []string) string {
	if len(words) == 0 {
		return ""
	}
	if len(words) > 8 {
		words = append(words[:8:8], "…")
	}
	return theme.Hint.Render("(" + strings.Join(words, ", ") + ")")
}

func init() {
	lexiconCheckCmd.Flags().String("grade", "", "Target Eiken grade (required)")
	_ = lexiconCheckCmd.MarkFlagRequired("grade")

	lexiconCmd.AddCommand(lexiconImportCmd)
	lexiconCmd.AddCommand(lexiconSeedCmd)
	lexiconCmd.AddCommand(lexiconCheckCmd)
}
