package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemJSON = `{"passage":"","stem":"My sister ( ) tennis every Sunday.","choices":["play","plays","playing","played"],"answer_index":1,"explanation":"Third person singular."}`

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}
}

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := newOpenAIProviderRaw(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4.1-mini",
		BaseURL: server.URL + "/v1",
	}, nil)
	require.NoError(t, err)
	return p
}

func errorHandler(status int, body map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func itemRequest() Request {
	return Request{
		System:    "You write Eiken practice items.",
		Messages:  []Message{{Role: RoleUser, Content: "Write one grammar item for grade 5."}},
		MaxTokens: 256,
	}
}

// errorKind names the typed error a status maps to.
func errorKind(err error) string {
	var (
		rl    *ErrRateLimit
		auth  *ErrAuthentication
		bad   *ErrBadRequest
		unav  *ErrProviderUnavailable
		inval *ErrInvalidResponse
	)
	switch {
	case errors.As(err, &rl):
		return "rate_limit"
	case errors.As(err, &auth):
		return "auth"
	case errors.As(err, &bad):
		return "bad_request"
	case errors.As(err, &unav):
		return "unavailable"
	case errors.As(err, &inval):
		return "invalid"
	}
	return "other"
}

func TestAnthropicProvider_Success(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": itemJSON}},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	})

	resp, err := p.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.Equal(t, 50, resp.Usage.InputTokens)
	assert.Equal(t, 80, resp.Usage.TotalTokens)
	assert.Equal(t, "end", resp.StopReason)
	assert.JSONEq(t, itemJSON, string(resp.Content))
}

func TestAnthropicProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		errType string
		want    string
	}{
		{http.StatusTooManyRequests, "rate_limit_error", "rate_limit"},
		{http.StatusInternalServerError, "api_error", "unavailable"},
		{http.StatusUnauthorized, "authentication_error", "auth"},
		{http.StatusForbidden, "permission_error", "auth"},
		{http.StatusBadRequest, "invalid_request_error", "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.errType, func(t *testing.T) {
			p := newTestAnthropicProvider(t, errorHandler(tt.status, map[string]any{
				"type":  "error",
				"error": map[string]any{"type": tt.errType, "message": "nope"},
			}))
			_, err := p.Generate(context.Background(), itemRequest())
			require.Error(t, err)
			assert.Equal(t, tt.want, errorKind(err))
		})
	}
}

func TestOpenAIProvider_Success(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4.1-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": itemJSON},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
		})
	})

	resp, err := p.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 25, resp.Usage.OutputTokens)
	assert.Equal(t, "end", resp.StopReason)
}

func TestOpenAIProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusTooManyRequests, "rate_limit"},
		{http.StatusBadGateway, "unavailable"},
		{http.StatusUnauthorized, "auth"},
		{http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestOpenAIProvider(t, errorHandler(tt.status, map[string]any{
				"error": map[string]any{"type": "error", "message": "nope"},
			}))
			_, err := p.Generate(context.Background(), itemRequest())
			require.Error(t, err)
			assert.Equal(t, tt.want, errorKind(err))
		})
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "x", "model": "gpt-4.1-mini", "choices": []any{}})
	})
	_, err := p.Generate(context.Background(), itemRequest())
	assert.Equal(t, "invalid", errorKind(err))
}

func TestModelMapping(t *testing.T) {
	tests := []struct {
		name   string
		models map[string]string
		input  string
		want   string
	}{
		{"anthropic friendly", anthropicModels, "claude-haiku", "claude-haiku-4-5-20251001"},
		{"anthropic passthrough", anthropicModels, "claude-sonnet-4-5", "claude-sonnet-4-5"},
		{"openai friendly", openaiModels, "gpt-mini", "gpt-4.1-mini"},
		{"gemini friendly", geminiModels, "gemini-flash", "gemini-2.5-flash"},
		{"gemini passthrough", geminiModels, "gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveModel(tt.input, tt.models))
		})
	}
}

func TestNewOpenRouterProvider(t *testing.T) {
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "google/gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.5-flash", p.ModelID())

	// Vendor-prefixed IDs bypass friendly-name mapping.
	p, err = NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "gpt-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-mini", p.ModelID())

	_, err = NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.5-flash"})
	assert.Error(t, err)
}

func TestBuildGeminiSchema(t *testing.T) {
	schema := buildGeminiSchema(ItemSchemaForTest.Definition)

	assert.Equal(t, "OBJECT", string(schema.Type))
	require.Contains(t, schema.Properties, "choices")
	assert.Equal(t, "ARRAY", string(schema.Properties["choices"].Type))
	assert.Equal(t, "STRING", string(schema.Properties["choices"].Items.Type))
	assert.Equal(t, "INTEGER", string(schema.Properties["answer_index"].Type))
	assert.Equal(t, []string{"B1", "A2"}, schema.Properties["level"].Enum)
	assert.ElementsMatch(t, []string{"stem", "choices", "answer_index"}, schema.Required)

	choices := schema.Properties["choices"]
	require.NotNil(t, choices.MinItems)
	assert.Equal(t, int64(4), *choices.MinItems)
	assert.Equal(t, int64(4), *choices.MaxItems)
	idx := schema.Properties["answer_index"]
	require.NotNil(t, idx.Maximum)
	assert.Equal(t, 0.0, *idx.Minimum)
	assert.Equal(t, 3.0, *idx.Maximum)
	assert.Equal(t, int64(1), *schema.Properties["stem"].MinLength)
	assert.Nil(t, schema.Properties["level"].MinLength)
}

func TestOpenAIStopReason(t *testing.T) {
	assert.Equal(t, "end", mapOpenAIStopReason(openai.FinishReasonStop))
	assert.Equal(t, "max_tokens", mapOpenAIStopReason(openai.FinishReasonLength))
	assert.Equal(t, "refused", mapOpenAIStopReason(openai.FinishReasonContentFilter))
}

func TestAnthropicProvider_StopReasons(t *testing.T) {
	tests := []struct {
		stop string
		want string
	}{
		{"max_tokens", "max_tokens"},
		{"refusal", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.stop, func(t *testing.T) {
			p := newTestAnthropicProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":          "msg_test",
					"type":        "message",
					"role":        "assistant",
					"content":     []map[string]any{{"type": "text", "text": `{"stem":"My sis`}},
					"model":       "claude-haiku-4-5-20251001",
					"stop_reason": tt.stop,
					"usage":       map[string]any{"input_tokens": 50, "output_tokens": 256},
				})
			})
			_, err := p.Generate(context.Background(), itemRequest())
			require.Error(t, err)
			if tt.want == "max_tokens" {
				var maxTok *ErrMaxTokensExceeded
				assert.ErrorAs(t, err, &maxTok)
				return
			}
			assert.Equal(t, tt.want, errorKind(err))
		})
	}
}

func TestOpenAIProvider_Truncated(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-test",
			"model": "gpt-4.1-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": `{"stem":"My`},
				"finish_reason": "length",
			}},
		})
	})
	_, err := p.Generate(context.Background(), itemRequest())
	var maxTok *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &maxTok)
}

func TestOpenRouterProvider_AttributionHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "gen-test",
			"model": "google/gemini-2.5-flash",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": itemJSON},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:   "sk-or-test",
		Model:    "google/gemini-2.5-flash",
		BaseURL:  server.URL + "/api/v1",
		AppTitle: "eikengen",
		Referer:  "https://example.org",
	})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.Equal(t, "eikengen", got.Get("X-Title"))
	assert.Equal(t, "https://example.org", got.Get("HTTP-Referer"))
	assert.Equal(t, "Bearer sk-or-test", got.Get("Authorization"))
}
