// Package validation runs generated questions through an ordered gate of
// linguistic and session-diversity checks.
package validation

import (
	"context"
	"fmt"

	"github.com/abhisek/eikengen/internal/eiken"
)

// Stage names, in gate order.
const (
	StageVocabulary = "vocabulary"
	StageComplexity = "complexity"
	StageDiversity  = "diversity"
)

// Target is what a question is checked against.
type Target struct {
	Grade        eiken.Grade
	QuestionType eiken.QuestionType
	SessionID    string
}

// Result is one validator's verdict.
type Result struct {
	Stage      string         `json:"stage"`
	Passed     bool           `json:"passed"`
	Diagnostic string         `json:"diagnostic,omitempty"`
	Metrics    map[string]any `json:"metrics,omitempty"`
}

// Validator checks a question. A returned error means the check could not
// run at all; a failed check is a Result with Passed false.
// Implementations must be safe for concurrent use.
type Validator interface {
	Name() string
	Validate(ctx context.Context, q *eiken.Question, t Target) (Result, error)
}

// Guide is implemented by validators that can steer the next generation
// attempt before it happens.
type Guide interface {
	Guidance(ctx context.Context, t Target) (string, error)
}

// RejectedError reports the first failing stage.
type RejectedError struct {
	Stage      string
	Diagnostic string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("validation rejected at %s: %s", e.Stage, e.Diagnostic)
}
