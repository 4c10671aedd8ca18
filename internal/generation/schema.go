package generation

import "github.com/abhisek/eikengen/internal/llm"

// ItemSchema defines the JSON schema for generated exam items.
var ItemSchema = &llm.Schema{
	Name:        "eiken-item",
	Description: "A single Eiken practice item with answer and explanation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"passage": map[string]any{
				"type":        "string",
				"description": "Reading passage, listening script or email. Empty for short items.",
			},
			"stem": map[string]any{
				"type":        "string",
				"description": "The question or prompt shown to the learner",
			},
			"choices": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Exactly 4 options for multiple-choice types, empty otherwise",
			},
			"answer_index": map[string]any{
				"type":        "integer",
				"minimum":     -1,
				"maximum":     3,
				"description": "Zero-based index of the correct choice, -1 for open-response types",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Why the answer is correct, in simple English",
			},
		},
		"required":             []any{"passage", "stem", "choices", "answer_index", "explanation"},
		"additionalProperties": false,
	},
}
