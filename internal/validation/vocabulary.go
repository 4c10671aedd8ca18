package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/lexicon"
)

// VocabularyConfig holds the vocabulary thresholds. A text is rejected
// when either ratio reaches its maximum.
type VocabularyConfig struct {
	MaxOutOfRange   float64 `yaml:"max_out_of_range" validate:"gt=0,lte=1"`
	MaxLowFrequency float64 `yaml:"max_low_frequency" validate:"gt=0,lte=1"`
	MinZipf         float64 `yaml:"min_zipf" validate:"gte=0"`
}

// DefaultVocabularyConfig returns the 3% level rule and 5% frequency rule.
func DefaultVocabularyConfig() VocabularyConfig {
	return VocabularyConfig{MaxOutOfRange: 0.03, MaxLowFrequency: 0.05, MinZipf: 3.5}
}

// VocabularyReport is the measured vocabulary profile.
type VocabularyReport struct {
	Target            eiken.Level
	UniqueLemmas      int
	OutOfRange        []string
	LowFrequency      []string
	OutOfRangeRatio   float64
	LowFrequencyRatio float64
	Valid             bool
}

// VocabularyValidator rejects texts whose lemmas sit above the grade's
// CEFR level or below the frequency floor. Unknown words are allowed.
type VocabularyValidator struct {
	analyzer *lexicon.Analyzer
	cfg      VocabularyConfig
}

// NewVocabularyValidator creates the validator.
func NewVocabularyValidator(analyzer *lexicon.Analyzer, cfg VocabularyConfig) *VocabularyValidator {
	return &VocabularyValidator{analyzer: analyzer, cfg: cfg}
}

func (v *VocabularyValidator) Name() string { return StageVocabulary }

// Measure profiles text against grade. It is deterministic for a fixed
// lexicon.
func (v *VocabularyValidator) Measure(ctx context.Context, text string, grade eiken.Grade) (*VocabularyReport, error) {
	a, err := v.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	rep := &VocabularyReport{Target: grade.TargetCEFR(), UniqueLemmas: len(a.Lemmas), Valid: true}
	if rep.UniqueLemmas == 0 {
		return rep, nil
	}

	for _, lemma := range a.Lemmas {
		e, ok := a.Entries[lemma]
		if !ok {
			continue
		}
		if e.Level > rep.Target {
			rep.OutOfRange = append(rep.OutOfRange, lemma)
		}
		if e.Zipf > 0 && e.Zipf < v.cfg.MinZipf {
			rep.LowFrequency = append(rep.LowFrequency, lemma)
		}
	}
	n := float64(rep.UniqueLemmas)
	rep.OutOfRangeRatio = float64(len(rep.OutOfRange)) / n
	rep.LowFrequencyRatio = float64(len(rep.LowFrequency)) / n
	rep.Valid = rep.OutOfRangeRatio < v.cfg.MaxOutOfRange && rep.LowFrequencyRatio < v.cfg.MaxLowFrequency
	return rep, nil
}

func (v *VocabularyValidator) Validate(ctx context.Context, q *eiken.Question, t Target) (Result, error) {
	rep, err := v.Measure(ctx, q.Text(), t.Grade)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Stage:  StageVocabulary,
		Passed: rep.Valid,
		Metrics: map[string]any{
			"unique_lemmas":       rep.UniqueLemmas,
			"out_of_range_ratio":  rep.OutOfRangeRatio,
			"low_frequency_ratio": rep.LowFrequencyRatio,
		},
	}
	if !rep.Valid {
		res.Diagnostic = vocabularyDiagnostic(rep)
	}
	return res, nil
}

func vocabularyDiagnostic(rep *VocabularyReport) string {
	var parts []string
	if len(rep.OutOfRange) > 0 {
		parts = append(parts, fmt.Sprintf("%.1f%% of words above %s: replace %s",
			rep.OutOfRangeRatio*100, rep.Target, strings.Join(firstN(rep.OutOfRange, 5), ", ")))
	}
	if len(rep.LowFrequency) > 0 {
		parts = append(parts, fmt.Sprintf("%.1f%% low-frequency words: %s",
			rep.LowFrequencyRatio*100, strings.Join(firstN(rep.LowFrequency, 5), ", ")))
	}
	return strings.Join(parts, "; ")
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
