package validation

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/eikengen/internal/eiken"
)

func choiceQuestion(answer int) *eiken.Question {
	return &eiken.Question{
		QuestionType: eiken.TypeVocabulary,
		Stem:         "I usually ___ my bike to school.",
		Choices:      []string{"ride", "make", "eat", "sing"},
		AnswerIndex:  answer,
	}
}

func slots(t *testing.T, d *DiversityValidator, session string, answers string) []bool {
	t.Helper()
	var out []bool
	for _, a := range answers {
		res, err := d.Validate(context.Background(), choiceQuestion(int(a-'A')), Target{Grade: eiken.Grade3, QuestionType: eiken.TypeVocabulary, SessionID: session})
		require.NoError(t, err)
		out = append(out, res.Passed)
	}
	return out
}

func TestAnswerSlotRules(t *testing.T) {
	tests := []struct {
		name    string
		answers string
		want    []bool
	}{
		{"third in a row", "AAAB", []bool{true, true, false, true}},
		{"window frequency", "AABA", []bool{true, true, true, false}},
		{"cumulative ceiling", "ABCADAB", []bool{true, true, true, true, true, false, true}},
		{"balanced", "ABCDABCD", []bool{true, true, true, true, true, true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiversityValidator(NewMemoryStore(16, time.Hour), DefaultDiversityConfig())
			assert.Equal(t, tt.want, slots(t, d, "s", tt.answers))
		})
	}
}

func TestDiversityRejectionDoesNotCommit(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	d := NewDiversityValidator(store, DefaultDiversityConfig())
	slots(t, d, "s", "AAA")

	st, err := store.Get(context.Background(), "s")
	require.NoError(t, err)
	require.NotNil(t, st)
	rs := st.Rules[RuleAnswerSlot]
	assert.Equal(t, []string{"A", "A"}, rs.History)
	assert.Equal(t, 2, rs.Total)
}

func TestDiversityWithoutSessionPasses(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	d := NewDiversityValidator(store, DefaultDiversityConfig())
	for range 5 {
		res, err := d.Validate(context.Background(), choiceQuestion(0), Target{Grade: eiken.Grade3})
		require.NoError(t, err)
		assert.True(t, res.Passed)
	}
	assert.Zero(t, store.Len())
}

func grammarQuestion(stem string, answer int, choices ...string) *eiken.Question {
	return &eiken.Question{QuestionType: eiken.TypeGrammarFill, Stem: stem, Choices: choices, AnswerIndex: answer}
}

func TestGrammarAndAnswerCommitTogether(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	d := NewDiversityValidator(store, DefaultDiversityConfig())
	target := Target{Grade: eiken.Grade4, QuestionType: eiken.TypeGrammarFill, SessionID: "g"}
	modal := func(answer int) *eiken.Question {
		return grammarQuestion("You ___ finish your homework.", answer, "can", "must", "should", "may")
	}

	for i, answer := range []int{0, 1} {
		res, err := d.Validate(context.Background(), modal(answer), target)
		require.NoError(t, err)
		require.True(t, res.Passed, "item %d", i)
		assert.Equal(t, GrammarModalVerb, res.Metrics[RuleGrammar])
	}

	res, err := d.Validate(context.Background(), modal(2), target)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Diagnostic, RuleGrammar)

	st, err := store.Get(context.Background(), "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, st.Rules[RuleAnswerSlot].History)
	assert.Equal(t, 2, st.Rules[RuleGrammar].Total)
}

func TestDiversityGuidance(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	d := NewDiversityValidator(store, DefaultDiversityConfig())
	target := Target{Grade: eiken.Grade3, QuestionType: eiken.TypeVocabulary, SessionID: "h"}

	hint, err := d.Guidance(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, hint)

	slots(t, d, "h", "ABA")
	hint, err = d.Guidance(context.Background(), target)
	require.NoError(t, err)
	assert.Contains(t, hint, "A, B, A")
	assert.Contains(t, hint, "avoid A")

	essay := target
	essay.QuestionType = eiken.TypeEssay
	hint, err = d.Guidance(context.Background(), essay)
	require.NoError(t, err)
	assert.Empty(t, hint)
}

func TestGrammarCategory(t *testing.T) {
	tests := []struct {
		name string
		q    *eiken.Question
		want string
	}{
		{"wh", grammarQuestion("What ___ you do yesterday?", 0, "did", "do", "does", "done"), GrammarWhQuestion},
		{"modal", grammarQuestion("You ___ finish your homework.", 1, "can", "must", "should", "may"), GrammarModalVerb},
		{"be", grammarQuestion("They ___ at home now.", 2, "am", "is", "are", "be"), GrammarBeVerb},
		{"progressive", grammarQuestion("She is ___ now.", 2, "run", "runs", "running", "ran"), GrammarProgressive},
		{"infinitive", grammarQuestion("I want to ___ tennis.", 0, "play", "plays", "played", "playing"), GrammarToInfinitive},
		{"conjunction", grammarQuestion("I stayed home ___ it was raining.", 0, "because", "but", "so", "or"), GrammarConjunction},
		{"comparative", grammarQuestion("My bag is ___ than yours.", 1, "big", "bigger", "biggest", "more big"), GrammarComparative},
		{"gerund", grammarQuestion("He enjoys ___ soccer.", 2, "play", "to play", "playing", "played"), GrammarGerund},
		{"general", grammarQuestion("They ___ to the park every Sunday.", 0, "go", "goes", "went", "going"), GrammarGeneralVerb},
		{"other", grammarQuestion("Look at that ___ bird.", 0, "beautiful", "quickly", "slowly", "often"), GrammarOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GrammarCategory(tt.q); got != tt.want {
				t.Errorf("GrammarCategory(%q) = %q, want %q", tt.q.Stem, got, tt.want)
			}
		})
	}
}

func TestAnswerSlot(t *testing.T) {
	assert.Equal(t, "C", AnswerSlot(choiceQuestion(2)))
	assert.Equal(t, "", AnswerSlot(choiceQuestion(7)))
	assert.Equal(t, "", AnswerSlot(&eiken.Question{QuestionType: eiken.TypeEssay, Stem: "Write"}))
}

// testDiversityStore checks the behaviour every DiversityStore must share.
func testDiversityStore(t *testing.T, s DiversityStore) {
	ctx := context.Background()
	id := uuid.NewString()

	st, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, st)

	err = s.Update(ctx, id, func(st *SessionState) (bool, error) {
		st.Rule("x").record("a", 20)
		return false, nil
	})
	require.NoError(t, err)
	st, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, st, "uncommitted update must not persist")

	const writers = 20
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, id, func(st *SessionState) (bool, error) {
				st.Rule("x").record("a", 100)
				return true, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err = s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, writers, st.Rules["x"].Total)
	assert.Len(t, st.Rules["x"].History, writers)

	st.Rules["x"].Total = -1
	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, again.Rules["x"].Total, "Get must return a snapshot")
}

func TestMemoryStore(t *testing.T) {
	testDiversityStore(t, NewMemoryStore(128, time.Hour))
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemoryStore(8, 50*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, "s", func(st *SessionState) (bool, error) { return true, nil }))
	st, err := s.Get(ctx, "s")
	require.NoError(t, err)
	require.NotNil(t, st)

	require.Eventually(t, func() bool {
		st, _ := s.Get(ctx, "s")
		return st == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("EIKENGEN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EIKENGEN_TEST_REDIS_ADDR not set")
	}
	rdb, err := DialRedis(context.Background(), addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	testDiversityStore(t, NewRedisStore(rdb, "eikengen:test:", time.Minute))
}
