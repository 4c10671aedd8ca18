package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/llm"
	"github.com/abhisek/eikengen/internal/selection"
	"github.com/abhisek/eikengen/internal/store"
	"github.com/abhisek/eikengen/internal/validation"
)

// --- stubs ---

type stubSelector struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSelector) Select(_ context.Context, req selection.Request) (*selection.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	code := fmt.Sprintf("topic-%d", s.calls)
	return &selection.Selection{
		Topic:  store.Topic{Code: code, Grade: req.Grade, LabelEN: "School life", Weight: 1, OfficialFrequency: 1, Active: true},
		Method: selection.MethodExploitation,
	}, nil
}

type stubGenerator struct {
	mu     sync.Mutex
	inputs []Input
	fn     func(n int, in Input) (*eiken.Question, error)
}

func (g *stubGenerator) Generate(_ context.Context, in Input) (*eiken.Question, error) {
	g.mu.Lock()
	g.inputs = append(g.inputs, in)
	n := len(g.inputs)
	g.mu.Unlock()
	if g.fn != nil {
		return g.fn(n, in)
	}
	return &eiken.Question{TopicCode: in.Topic.Code, Grade: in.Grade, QuestionType: in.QuestionType, Stem: "ok"}, nil
}

// stubGate rejects every call whose ordinal satisfies reject.
type stubGate struct {
	mu       sync.Mutex
	calls    int
	reject   func(n int) bool
	stage    string
	guidance string
	err      error
}

func (g *stubGate) Check(_ context.Context, _ *eiken.Question, _ validation.Target) ([]validation.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.reject != nil && g.reject(g.calls) {
		res := validation.Result{Stage: g.stage, Diagnostic: "too hard"}
		return []validation.Result{res}, &validation.RejectedError{Stage: g.stage, Diagnostic: "too hard"}
	}
	return []validation.Result{{Stage: validation.StageVocabulary, Passed: true}}, nil
}

func (g *stubGate) Guidance(context.Context, validation.Target) string { return g.guidance }

type stubRecorder struct {
	mu        sync.Mutex
	feedbacks []selection.Feedback
}

func (r *stubRecorder) Record(_ context.Context, fb selection.Feedback) (*store.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedbacks = append(r.feedbacks, fb)
	return nil, &selection.PersistenceWarning{Op: "record_outcome", Err: errors.New("disk full")}
}

func (r *stubRecorder) reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, fb := range r.feedbacks {
		if !fb.Accepted {
			out = append(out, fb.Reason)
		}
	}
	return out
}

type memItems struct {
	mu    sync.Mutex
	items []store.GeneratedItem
}

func (m *memItems) SaveItem(_ context.Context, it store.GeneratedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, it)
	return nil
}

func (m *memItems) ListItems(context.Context, store.ItemFilter) ([]store.GeneratedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.GeneratedItem(nil), m.items...), nil
}

type fixture struct {
	sel   *stubSelector
	gen   *stubGenerator
	gate  *stubGate
	rec   *stubRecorder
	items *memItems
}

func newFixture() *fixture {
	return &fixture{
		sel:   &stubSelector{},
		gen:   &stubGenerator{},
		gate:  &stubGate{stage: validation.StageComplexity},
		rec:   &stubRecorder{},
		items: &memItems{},
	}
}

func (f *fixture) orchestrator(cfg Config) *Orchestrator {
	return NewOrchestrator(Deps{
		Selector:  f.sel,
		Generator: f.gen,
		Gate:      f.gate,
		Recorder:  f.rec,
		Items:     f.items,
	}, cfg, WithPacer(rate.NewLimiter(rate.Inf, 1)))
}

func genRequest(count int) Request {
	return Request{StudentID: "s1", Grade: eiken.Grade3, QuestionType: eiken.TypeVocabulary, Count: count, SessionID: "sess-1"}
}

// --- orchestrator ---

func TestGenerateAlternatingRejections(t *testing.T) {
	f := newFixture()
	f.gate.reject = func(n int) bool { return n%2 == 0 }

	res, err := f.orchestrator(DefaultConfig()).Generate(context.Background(), genRequest(3))
	require.NoError(t, err)

	assert.Len(t, res.Accepted, 3)
	assert.True(t, res.Complete())
	assert.LessOrEqual(t, res.Attempts, 9)
	assert.Equal(t, res.Attempts-3, res.RejectedCount)
	assert.Equal(t, 5, res.Attempts)
	assert.Len(t, res.Log, res.Attempts)
	assert.False(t, res.Cancelled)

	// Rejections blacklist with the stage's reason; acceptances do not.
	assert.Equal(t, []string{selection.ReasonTextTooComplex, selection.ReasonTextTooComplex}, f.rec.reasons())
	assert.Len(t, f.rec.feedbacks, 5)
	assert.Len(t, f.items.items, 3)

	// The attempt after a rejection carries its diagnostic as a hint.
	require.Len(t, f.gen.inputs, 5)
	assert.Empty(t, f.gen.inputs[1].Hint)
	assert.Contains(t, f.gen.inputs[2].Hint, "complexity: too hard")
	assert.Empty(t, f.gen.inputs[3].Hint)
}

func TestGenerateQuotaNotMet(t *testing.T) {
	f := newFixture()
	f.gate.reject = func(int) bool { return true }
	f.gate.stage = validation.StageDiversity
	cfg := DefaultConfig()
	cfg.MaxDiagnostics = 4

	res, err := f.orchestrator(cfg).Generate(context.Background(), genRequest(2))
	require.NoError(t, err)

	assert.Empty(t, res.Accepted)
	assert.Equal(t, 6, res.Attempts)
	assert.Equal(t, 6, res.RejectedCount)
	require.Len(t, res.Errors, 5)
	assert.Contains(t, res.Errors[4], "quota not met: 0 of 2")

	// Diversity rejections are session-local and blacklist nothing.
	for _, r := range f.rec.reasons() {
		assert.Empty(t, r)
	}
}

func TestGenerateCancelledBeforeStart(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.orchestrator(DefaultConfig()).Generate(ctx, genRequest(3))
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Zero(t, res.Attempts)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "cancelled")
}

func TestGenerateCancelDuringCallFinishesAttempt(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.gen.fn = func(n int, in Input) (*eiken.Question, error) {
		cancel()
		return &eiken.Question{TopicCode: in.Topic.Code, Stem: "ok"}, nil
	}

	res, err := f.orchestrator(DefaultConfig()).Generate(ctx, genRequest(3))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, res.Accepted, 1, "in-flight attempt completes")
	assert.True(t, res.Cancelled)
}

func TestGenerateSelectionExhaustedAborts(t *testing.T) {
	f := newFixture()
	f.sel.err = &selection.ExhaustedError{Request: genRequest(1).selection(), Stages: 7}

	res, err := f.orchestrator(DefaultConfig()).Generate(context.Background(), genRequest(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, selection.ErrSelectionExhausted)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, f.gen.inputs)
	assert.Equal(t, OutcomeAborted, res.Log[0].Outcome)
}

func TestGenerateFatalTransportAborts(t *testing.T) {
	f := newFixture()
	f.gen.fn = func(int, Input) (*eiken.Question, error) {
		return nil, fmt.Errorf("LLM generation failed: %w", &llm.ErrAuthentication{Status: 401, Err: errors.New("bad key")})
	}

	res, err := f.orchestrator(DefaultConfig()).Generate(context.Background(), genRequest(3))
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Retryable)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, f.rec.feedbacks)
}

func TestGenerateRetryableTransportConsumesAttempts(t *testing.T) {
	f := newFixture()
	f.gen.fn = func(n int, in Input) (*eiken.Question, error) {
		switch n {
		case 1:
			return nil, &llm.ErrRateLimit{Err: errors.New("429")}
		case 2:
			return nil, &llm.ErrInvalidResponse{Err: errors.New("expected 4 choices, got 3")}
		}
		return &eiken.Question{TopicCode: in.Topic.Code, Stem: "ok"}, nil
	}

	res, err := f.orchestrator(DefaultConfig()).Generate(context.Background(), genRequest(1))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 2, res.RejectedCount)
	assert.Len(t, res.Accepted, 1)
	assert.Equal(t, OutcomeTransportError, res.Log[0].Outcome)

	// Only the unusable response blames the topic.
	assert.Equal(t, []string{selection.ReasonTechnicalIssue}, f.rec.reasons())
}

func TestGenerateValidatorUnavailable(t *testing.T) {
	f := newFixture()
	f.gate.err = errors.New("diversity validator: redis down")

	res, err := f.orchestrator(DefaultConfig()).Generate(context.Background(), genRequest(1))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.Accepted)
	assert.Equal(t, []string{"", "", ""}, f.rec.reasons())
}

func TestGeneratePassesGuidance(t *testing.T) {
	f := newFixture()
	f.gate.guidance = "Avoid placing the correct answer at B."

	_, err := f.orchestrator(DefaultConfig()).Generate(context.Background(), genRequest(1))
	require.NoError(t, err)
	require.Len(t, f.gen.inputs, 1)
	assert.Equal(t, "Avoid placing the correct answer at B.", f.gen.inputs[0].Guidance)
}

func TestGenerateAssignsSession(t *testing.T) {
	f := newFixture()
	req := genRequest(1)
	req.SessionID = ""

	res, err := f.orchestrator(DefaultConfig()).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Request.SessionID)
	require.Len(t, f.items.items, 1)
	assert.Equal(t, res.Request.SessionID, f.items.items[0].SessionID)
}

func TestGenerateBatch(t *testing.T) {
	f := newFixture()
	reqs := []Request{genRequest(2), genRequest(2), genRequest(2)}
	for i := range reqs {
		reqs[i].StudentID = fmt.Sprintf("s%d", i)
	}
	reqs = append(reqs, Request{StudentID: "bad", Grade: "9", QuestionType: eiken.TypeEssay, Count: 1})

	results, err := f.orchestrator(DefaultConfig()).GenerateBatch(context.Background(), reqs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student bad")
	require.Len(t, results, 4)
	for i := range 3 {
		require.NotNil(t, results[i])
		assert.True(t, results[i].Complete())
	}
	assert.Nil(t, results[3])
	assert.Len(t, f.items.items, 6)
}

func TestGeneratePacerLimitsCalls(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(Deps{Selector: f.sel, Generator: f.gen, Gate: f.gate, Recorder: f.rec},
		DefaultConfig(), WithPacer(rate.NewLimiter(rate.Every(time.Hour), 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The burst admits one call; the next wait would exceed the deadline.
	res, err := o.Generate(ctx, genRequest(3))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.True(t, res.Cancelled)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", genRequest(1), false},
		{"zero count", genRequest(0), true},
		{"no student", Request{Grade: eiken.Grade5, QuestionType: eiken.TypeEssay, Count: 1}, true},
		{"bad grade", Request{StudentID: "s", Grade: "7", QuestionType: eiken.TypeEssay, Count: 1}, true},
		{"bad type", Request{StudentID: "s", Grade: eiken.Grade5, QuestionType: "crossword", Count: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.req.Validate() != nil)
		})
	}
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, selection.ReasonVocabularyTooHard, rejectionReason(validation.StageVocabulary))
	assert.Equal(t, selection.ReasonTextTooComplex, rejectionReason(validation.StageComplexity))
	assert.Empty(t, rejectionReason(validation.StageDiversity))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		invalid   bool
	}{
		{"rate limit", &llm.ErrRateLimit{}, true, false},
		{"unavailable", &llm.ErrProviderUnavailable{}, true, false},
		{"timeout", context.DeadlineExceeded, true, false},
		{"invalid output", fmt.Errorf("wrap: %w", &llm.ErrInvalidResponse{Err: errors.New("x")}), true, true},
		{"auth", &llm.ErrAuthentication{Status: 403}, false, false},
		{"bad request", &llm.ErrBadRequest{}, false, false},
		{"already classified", &TransportError{Retryable: false, Err: errors.New("x")}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := classify(tt.err)
			assert.Equal(t, tt.retryable, te.Retryable)
			assert.Equal(t, tt.invalid, te.InvalidOutput)
			assert.ErrorIs(t, te, tt.err)
		})
	}
}

// --- LLM generator ---

func topicForPrompt() store.Topic {
	return store.Topic{
		Code:         "school_clubs",
		Grade:        eiken.Grade3,
		LabelEN:      "School clubs",
		LabelJA:      "部活動",
		Abstractness: 2,
		ContextType:  "daily",
		Scenario:     "A student talks about joining a club",
		SubTopics:    []string{"sports clubs", "music clubs"},
		ArgumentAxes: []string{"time", "friendship"},
	}
}

func TestLLMGeneratorMapsResponse(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(
		`{"passage":"","stem":" My brother ( ) in the tennis club. ","choices":["is","are","am","be"],"answer_index":0,"explanation":"He is singular."}`,
	)})
	g := NewLLMGenerator(mock, GeneratorConfig{MaxTokens: 800, Temperature: 0.5})

	q, err := g.Generate(context.Background(), Input{
		Topic:        topicForPrompt(),
		Grade:        eiken.Grade3,
		QuestionType: eiken.TypeGrammarFill,
		Guidance:     "Avoid be_verb items.",
		Hint:         "vocabulary: 5.0% of words above A2",
	})
	require.NoError(t, err)
	assert.Equal(t, "school_clubs", q.TopicCode)
	assert.Equal(t, eiken.TypeGrammarFill, q.QuestionType)
	assert.Equal(t, "My brother ( ) in the tennis club.", q.Stem)
	assert.Equal(t, "is", q.CorrectChoice())

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, ItemSchema, req.Schema)
	assert.Equal(t, 800, req.MaxTokens)
	msg := req.Messages[0].Content
	assert.Contains(t, msg, "School clubs (部活動)")
	assert.Contains(t, msg, "CEFR A2 or below")
	assert.Contains(t, msg, "1. sports clubs")
	assert.NotContains(t, msg, "argument axes", "axes only for opinion types")
	assert.Contains(t, msg, "Avoid be_verb items.")
	assert.Contains(t, msg, "The previous attempt was rejected:\nvocabulary: 5.0% of words above A2")
}

func TestLLMGeneratorStructuralFailure(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(
		`{"passage":"","stem":"Pick one.","choices":["a","b","c"],"answer_index":0,"explanation":"x"}`,
	)})
	_, err := NewLLMGenerator(mock, GeneratorConfig{}).Generate(context.Background(), Input{
		Topic: topicForPrompt(), Grade: eiken.Grade3, QuestionType: eiken.TypeVocabulary,
	})
	var inv *llm.ErrInvalidResponse
	require.ErrorAs(t, err, &inv)
	assert.Contains(t, err.Error(), "expected 4 choices")
	assert.True(t, classify(err).InvalidOutput)
}

func TestLLMGeneratorProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrBadRequest{Err: errors.New("schema")}})
	_, err := NewLLMGenerator(mock, GeneratorConfig{}).Generate(context.Background(), Input{
		Topic: topicForPrompt(), Grade: eiken.Grade3, QuestionType: eiken.TypeEssay,
	})
	require.Error(t, err)
	assert.False(t, classify(err).Retryable)
}

func TestPromptIncludesArgumentAxesForOpinions(t *testing.T) {
	msg := buildUserMessage(Input{Topic: topicForPrompt(), Grade: eiken.Grade2, QuestionType: eiken.TypeEssay})
	assert.Contains(t, msg, "Possible argument axes:\n1. time\n2. friendship")
	assert.Contains(t, msg, "CEFR B1 or below")
	assert.False(t, strings.HasSuffix(msg, "\n"))
}

func TestCheckStructure(t *testing.T) {
	four := []string{"play", "plays", "playing", "played"}
	tests := []struct {
		name    string
		q       eiken.Question
		wantErr string
	}{
		{"valid grammar", eiken.Question{QuestionType: eiken.TypeGrammarFill, Stem: "She ( ) tennis.", Choices: four, AnswerIndex: 1, Explanation: "x"}, ""},
		{"underscore blank", eiken.Question{QuestionType: eiken.TypeGrammarFill, Stem: "She ___ tennis.", Choices: four, AnswerIndex: 1, Explanation: "x"}, ""},
		{"grammar without blank", eiken.Question{QuestionType: eiken.TypeGrammarFill, Stem: "She plays tennis.", Choices: four, AnswerIndex: 1, Explanation: "x"}, "no blank"},
		{"empty stem", eiken.Question{QuestionType: eiken.TypeEssay, Explanation: "x"}, "stem is empty"},
		{"missing explanation", eiken.Question{QuestionType: eiken.TypeEssay, Stem: "Why?"}, "explanation is empty"},
		{"reading needs passage", eiken.Question{QuestionType: eiken.TypeLongReading, Stem: "Why?", Choices: four, Explanation: "x"}, "requires a passage"},
		{"duplicate choice", eiken.Question{QuestionType: eiken.TypeVocabulary, Stem: "Pick.", Choices: []string{"a", "A", "b", "c"}, Explanation: "x"}, "duplicate choice"},
		{"index out of range", eiken.Question{QuestionType: eiken.TypeVocabulary, Stem: "Pick.", Choices: four, AnswerIndex: 4, Explanation: "x"}, "out of range"},
		{"essay ignores choices", eiken.Question{QuestionType: eiken.TypeEssay, Stem: "Do you agree?", Choices: []string{"x"}, Explanation: "x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.q
			normalize(&q)
			err := checkStructure(&q)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
