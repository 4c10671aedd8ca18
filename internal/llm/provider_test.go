package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/eikengen/internal/logging"
	"github.com/abhisek/eikengen/internal/store"
)

func TestMockProvider_Queue(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Err: &ErrRateLimit{}},
	)

	resp, err := mock.Generate(context.Background(), Request{System: "sys"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(resp.Content))
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, "mock", resp.Model)

	_, err = mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)

	assert.Equal(t, 3, mock.CallCount())
	assert.Equal(t, "sys", mock.Calls[0].System)
}

func TestMockProvider_RespondHook(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"first":true}`)})
	mock.Respond = func(req Request) MockResponse {
		return MockResponse{Content: json.RawMessage(`{"echo":"` + req.System + `"}`)}
	}

	resp, err := mock.Generate(context.Background(), Request{System: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"first":true}`, string(resp.Content))

	resp, err = mock.Generate(context.Background(), Request{System: "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"b"}`, string(resp.Content))
}

func TestMockProvider_AppliesSchemaAndStop(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage("```json\n{\"stem\":\"x\",\"choices\":[\"a\",\"b\",\"c\",\"d\"],\"answer_index\":2}\n```")},
		MockResponse{Content: json.RawMessage(`{"stem":"x"}`)},
		MockResponse{Content: json.RawMessage(`{"stem":`), StopReason: StopMaxTokens},
	)
	req := Request{Schema: ItemSchemaForTest}

	resp, err := mock.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stem":"x","choices":["a","b","c","d"],"answer_index":2}`, string(resp.Content))

	_, err = mock.Generate(context.Background(), req)
	var inv *ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)

	_, err = mock.Generate(context.Background(), req)
	assert.True(t, Fatal(err))
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", PurposeFrom(ctx))
	assert.Equal(t, PurposeItemGeneration, PurposeFrom(WithPurpose(ctx, PurposeItemGeneration)))

	// The outermost label wins.
	preview := WithPurpose(ctx, PurposePreview)
	assert.Equal(t, PurposePreview, PurposeFrom(WithPurpose(preview, PurposeItemGeneration)))

	_, ok := SubjectFrom(ctx)
	assert.False(t, ok)
	sub, ok := SubjectFrom(WithSubject(ctx, Subject{StudentID: "hana", SessionID: "s1"}))
	require.True(t, ok)
	assert.Equal(t, "hana", sub.StudentID)
	assert.Equal(t, "s1", sub.SessionID)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "sk"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"gemini with key", Config{Provider: ProviderGemini, Gemini: GeminiConfig{APIKey: "g"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"unknown provider", Config{Provider: "palm"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() = %v", err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EIKENGEN_LLM_PROVIDER", "openai")
	t.Setenv("EIKENGEN_OPENAI_API_KEY", "sk-env")
	t.Setenv("EIKENGEN_OPENAI_BASE_URL", "http://localhost:8080/v1")

	cfg := ConfigFromEnv()
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "claude-haiku", cfg.Anthropic.Model)
	assert.NoError(t, cfg.Validate())
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	_, ok := DiscoverConfig(DefaultConfig())
	assert.False(t, ok)

	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, ok := DiscoverConfig(DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "g-key", cfg.Gemini.APIKey)
}

func TestMapStatus(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		status int
		want   string
		fatal  bool
	}{
		{http.StatusTooManyRequests, "rate_limit", false},
		{http.StatusUnauthorized, "auth", true},
		{http.StatusForbidden, "auth", true},
		{http.StatusBadRequest, "bad_request", true},
		{http.StatusServiceUnavailable, "unavailable", false},
		{0, "unavailable", false},
	}
	for _, tt := range tests {
		err := mapStatus(tt.status, base)
		assert.Equal(t, tt.want, errorKind(err), "status %d", tt.status)
		assert.Equal(t, tt.fatal, Fatal(err), "status %d", tt.status)
		assert.ErrorIs(t, err, base)
	}
	assert.True(t, Fatal(&ErrMaxTokensExceeded{}))
	assert.False(t, Fatal(&ErrInvalidResponse{Err: base}))
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	s, err := store.Open("file:llm_logging?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"stem":"x"}`), Usage: Usage{InputTokens: 12, OutputTokens: 8}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, s.EventRepo(), logging.Nop())
	ctx := WithPurpose(context.Background(), "item-generation")

	_, err = p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "go"}}})
	require.NoError(t, err)
	_, err = p.Generate(ctx, Request{})
	require.Error(t, err)

	events, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{From: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.False(t, events[0].Success)
	assert.Contains(t, events[0].ErrorMessage, "down")
	assert.True(t, events[1].Success)
	assert.Equal(t, "item-generation", events[1].Purpose)
	assert.Equal(t, 12, events[1].InputTokens)
	assert.Contains(t, events[1].RequestBody, "[system]\nsys")
	assert.Equal(t, `{"stem":"x"}`, events[1].ResponseBody)
}

func TestLoggingProvider_NilRepo(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	_, err := WithLogging(mock, nil, nil).Generate(context.Background(), Request{})
	assert.NoError(t, err)
}
