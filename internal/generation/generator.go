// Package generation drives the select → generate → validate → record loop
// that turns a request for N practice items into accepted questions.
package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/llm"
	"github.com/abhisek/eikengen/internal/store"
)

// Input is everything the content generator is told about one item.
type Input struct {
	Topic        store.Topic
	Grade        eiken.Grade
	QuestionType eiken.QuestionType

	// Guidance lists over-used answer slots or grammar categories to avoid.
	Guidance string

	// Hint is the diagnostic from the previous rejection, if any.
	Hint string
}

// ContentGenerator produces one candidate question. Errors are classified
// by the orchestrator; see TransportError.
type ContentGenerator interface {
	Generate(ctx context.Context, input Input) (*eiken.Question, error)
}

// GeneratorConfig holds model call parameters.
type GeneratorConfig struct {
	MaxTokens   int
	Temperature float64
}

// LLMGenerator implements ContentGenerator on top of an llm.Provider.
type LLMGenerator struct {
	provider llm.Provider
	config   GeneratorConfig
}

// NewLLMGenerator creates a generator using provider.
func NewLLMGenerator(provider llm.Provider, cfg GeneratorConfig) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// itemOutput is the raw model response before structural checks.
type itemOutput struct {
	Passage     string   `json:"passage"`
	Stem        string   `json:"stem"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// Generate asks the model for one item and checks its shape.
// Shape problems come back as *llm.ErrInvalidResponse.
func (g *LLMGenerator) Generate(ctx context.Context, input Input) (*eiken.Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeItemGeneration)

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input)},
		},
		Schema:      ItemSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw itemOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("parse item: %w", err)}
	}

	q := &eiken.Question{
		TopicCode:    input.Topic.Code,
		Grade:        input.Grade,
		QuestionType: input.QuestionType,
		Passage:      raw.Passage,
		Stem:         raw.Stem,
		Choices:      raw.Choices,
		AnswerIndex:  raw.AnswerIndex,
		Explanation:  raw.Explanation,
	}
	normalize(q)

	if err := checkStructure(q); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	return q, nil
}
