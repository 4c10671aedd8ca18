package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestCommandsAgainstTempDatabase(t *testing.T) {
	t.Setenv("EIKENGEN_CONFIG", "")
	t.Setenv("EIKENGEN_LLM_PROVIDER", "mock")
	db := filepath.Join(t.TempDir(), "eikengen.db")

	require.NoError(t, execute(t, "topics", "seed", "--db", db))
	require.NoError(t, execute(t, "lexicon", "seed", "--db", db))
	require.NoError(t, execute(t, "select", "--db", db,
		"--student", "hana", "--grade", "5", "--type", "grammar_fill", "--seed", "7", "--accept"))
	require.NoError(t, execute(t, "blacklist", "add", "--db", db,
		"--student", "hana", "--grade", "5", "--type", "grammar_fill", "--topic", "school_life",
		"--reason", "vocabulary_too_hard"))
	require.NoError(t, execute(t, "stats", "--db", db, "--grade", "5"))

	// The mock provider has no canned responses, so every attempt is a
	// retryable transport failure and the run ends short without error.
	require.NoError(t, execute(t, "generate", "--db", db,
		"--student", "hana", "--grade", "5", "--type", "grammar_fill", "--count", "1"))

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	topics, err := s.TopicRepo().ActiveTopics(ctx, eiken.Grade5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(topics), 8)

	n, err := s.LexiconRepo().LexiconSize(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)

	recent, err := s.UsageRepo().RecentTopics(ctx, "hana", eiken.Grade5, eiken.TypeGrammarFill, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	entries, err := s.BlacklistRepo().ListBlacklist(ctx, "hana")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].FailureCount)

	items, err := s.ItemRepo().ListItems(ctx, store.ItemFilter{StudentID: "hana"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGenerateRequests(t *testing.T) {
	reset := func() {
		for _, f := range []string{"student", "grade", "type", "session"} {
			_ = generateCmd.Flags().Set(f, "")
		}
	}
	reset()
	t.Cleanup(reset)
	require.NoError(t, generateCmd.Flags().Set("grade", "pre2"))
	require.NoError(t, generateCmd.Flags().Set("type", "essay"))
	require.NoError(t, generateCmd.Flags().Set("students", "a, b"))
	require.NoError(t, generateCmd.Flags().Set("count", "2"))

	reqs, err := generateRequests(generateCmd)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "b", reqs[1].StudentID)
	assert.Equal(t, eiken.GradePre2, reqs[0].Grade)
	assert.Equal(t, 2, reqs[0].Count)

	require.NoError(t, generateCmd.Flags().Set("session", "s1"))
	_, err = generateRequests(generateCmd)
	assert.ErrorContains(t, err, "single student")
}
