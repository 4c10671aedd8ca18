package validation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/lexicon"
)

const (
	simpleText   = "I like cats. My cat is white. Cats are very cute animals."
	academicText = "The pharmaceutical company used advanced methodologies for synthesizing compounds."
)

func testAnalyzer(t *testing.T) *lexicon.Analyzer {
	t.Helper()
	entries, err := lexicon.Seed()
	require.NoError(t, err)
	lemma, err := lexicon.NewLemmatizer()
	require.NoError(t, err)
	return lexicon.NewAnalyzer(lexicon.NewMemory(entries...), lemma)
}

func TestVocabularySimpleTextPasses(t *testing.T) {
	v := NewVocabularyValidator(testAnalyzer(t), DefaultVocabularyConfig())
	rep, err := v.Measure(context.Background(), simpleText, eiken.Grade5)
	require.NoError(t, err)
	assert.True(t, rep.Valid)
	assert.Equal(t, eiken.A1, rep.Target)
	assert.Empty(t, rep.OutOfRange)
	assert.Zero(t, rep.OutOfRangeRatio)
	assert.Zero(t, rep.LowFrequencyRatio)
}

func TestVocabularyAcademicTextFails(t *testing.T) {
	v := NewVocabularyValidator(testAnalyzer(t), DefaultVocabularyConfig())
	rep, err := v.Measure(context.Background(), academicText, eiken.Grade5)
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.GreaterOrEqual(t, rep.OutOfRangeRatio, 0.5)
	assert.Subset(t, rep.OutOfRange, []string{"pharmaceutical", "methodology", "synthesize"})
	assert.Subset(t, rep.LowFrequency, []string{"pharmaceutical", "methodology", "synthesize"})

	q := &eiken.Question{QuestionType: eiken.TypeLongReading, Passage: academicText}
	res, err := v.Validate(context.Background(), q, Target{Grade: eiken.Grade5})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Diagnostic, "above A1")
}

func TestVocabularyIsIdempotent(t *testing.T) {
	v := NewVocabularyValidator(testAnalyzer(t), DefaultVocabularyConfig())
	ctx := context.Background()
	text := "Ken studied hard because the examination was difficult."
	first, err := v.Measure(ctx, text, eiken.Grade4)
	require.NoError(t, err)
	for range 5 {
		again, err := v.Measure(ctx, text, eiken.Grade4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestVocabularyUnknownWordsPermitted(t *testing.T) {
	v := NewVocabularyValidator(testAnalyzer(t), DefaultVocabularyConfig())
	rep, err := v.Measure(context.Background(), "Taro and Hanako", eiken.Grade5)
	require.NoError(t, err)
	assert.True(t, rep.Valid)
	assert.Equal(t, 3, rep.UniqueLemmas)

	empty, err := v.Measure(context.Background(), "123 !!!", eiken.Grade5)
	require.NoError(t, err)
	assert.True(t, empty.Valid)
	assert.Zero(t, empty.UniqueLemmas)
}

func TestComplexitySimpleText(t *testing.T) {
	v := NewComplexityValidator(testAnalyzer(t), DefaultComplexityConfig())
	rep, err := v.Measure(context.Background(), simpleText, eiken.Grade5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rep.AvrDiff, 1e-9)
	assert.Zero(t, rep.BperA)
	assert.Zero(t, rep.ARI)
	assert.InDelta(t, -0.657, rep.Score, 0.001)
	assert.Equal(t, eiken.BandPreA1, rep.Band)
	assert.Equal(t, eiken.BandA1_3, rep.Target)
	assert.True(t, rep.Valid)
	assert.LessOrEqual(t, rep.Gap(), 3)
}

func TestComplexityAcademicText(t *testing.T) {
	v := NewComplexityValidator(testAnalyzer(t), DefaultComplexityConfig())
	rep, err := v.Measure(context.Background(), academicText, eiken.Grade5)
	require.NoError(t, err)
	assert.Equal(t, eiken.BandC2, rep.Band)
	assert.InDelta(t, 7.0, rep.Score, 1e-9)
	assert.False(t, rep.Valid)

	q := &eiken.Question{QuestionType: eiken.TypeLongReading, Passage: academicText}
	res, err := v.Validate(context.Background(), q, Target{Grade: eiken.Grade5})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Diagnostic, "C2")

	// Grade 1 targets C1, one band below C2.
	res, err = v.Validate(context.Background(), q, Target{Grade: eiken.Grade1})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestComplexityEmptyText(t *testing.T) {
	v := NewComplexityValidator(testAnalyzer(t), DefaultComplexityConfig())
	rep, err := v.Measure(context.Background(), "", eiken.Grade3)
	require.NoError(t, err)
	assert.Equal(t, eiken.BandA1_1, rep.Band)
	assert.Equal(t, 0.5, rep.Score)
	assert.True(t, rep.Valid)
}

func TestBandMapping(t *testing.T) {
	cfg := DefaultComplexityConfig()
	tests := []struct {
		score float64
		want  eiken.Band
	}{
		{-3, eiken.BandPreA1},
		{0.49, eiken.BandPreA1},
		{0.5, eiken.BandA1_1},
		{0.839, eiken.BandA1_1},
		{0.84, eiken.BandA1_2},
		{1.2, eiken.BandA1_3},
		{1.5, eiken.BandA2_1},
		{2.4, eiken.BandA2_2},
		{2.5, eiken.BandB1_1},
		{3.2, eiken.BandB1_2},
		{3.9, eiken.BandB2_1},
		{4.0, eiken.BandB2_2},
		{5.49, eiken.BandC1},
		{5.5, eiken.BandC2},
		{100, eiken.BandC2},
	}
	for _, tt := range tests {
		if got := cfg.Band(tt.score); got != tt.want {
			t.Errorf("Band(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}

	// Scores inside one bracket share a band.
	for s := 2.0; s < 2.5; s += 0.01 {
		if got := cfg.Band(s); got != eiken.BandA2_2 {
			t.Fatalf("Band(%v) = %s, want A2.2", s, got)
		}
	}
}

func TestReadability(t *testing.T) {
	if got := readability(simpleText); got != 0 {
		t.Errorf("readability(simple) = %v, want 0", got)
	}
	if got := readability(""); got != 0 {
		t.Errorf("readability(empty) = %v, want 0", got)
	}
	if got := readability(academicText); got < 20 {
		t.Errorf("readability(academic) = %v, want > 20", got)
	}
}

func TestRegressionCap(t *testing.T) {
	r := Regression{Slope: 2, Intercept: 1, Cap: 7}
	assert.Equal(t, 5.0, r.Apply(2))
	assert.Equal(t, 7.0, r.Apply(10))
}

// stubValidator records calls and returns a fixed verdict.
type stubValidator struct {
	name   string
	passed bool
	err    error
	calls  int
}

func (s *stubValidator) Name() string { return s.name }

func (s *stubValidator) Validate(context.Context, *eiken.Question, Target) (Result, error) {
	s.calls++
	if s.err != nil {
		return Result{}, s.err
	}
	r := Result{Passed: s.passed}
	if !s.passed {
		r.Diagnostic = s.name + " failed"
	}
	return r, nil
}

func (s *stubValidator) Guidance(context.Context, Target) (string, error) {
	return "hint from " + s.name, nil
}

func TestGateShortCircuits(t *testing.T) {
	a := &stubValidator{name: "a", passed: true}
	b := &stubValidator{name: "b", passed: false}
	c := &stubValidator{name: "c", passed: true}
	g := NewGate(nil, a, b, c)

	results, err := g.Check(context.Background(), &eiken.Question{}, Target{Grade: eiken.Grade3})
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "b", rej.Stage)
	assert.Equal(t, "b failed", rej.Diagnostic)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Stage)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls)
	assert.Equal(t, []string{"a", "b", "c"}, g.Stages())
	assert.Equal(t, "hint from a\nhint from b\nhint from c", g.Guidance(context.Background(), Target{}))
}

func TestGateInfrastructureError(t *testing.T) {
	g := NewGate(nil, &stubValidator{name: "lex", err: fmt.Errorf("lexicon offline")})
	_, err := g.Check(context.Background(), &eiken.Question{}, Target{})
	require.Error(t, err)
	var rej *RejectedError
	assert.False(t, errors.As(err, &rej))
	assert.Contains(t, err.Error(), "lexicon offline")
}

func TestGateAllPass(t *testing.T) {
	g := NewGate(nil, &stubValidator{name: "a", passed: true}, &stubValidator{name: "b", passed: true})
	results, err := g.Check(context.Background(), &eiken.Question{}, Target{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
