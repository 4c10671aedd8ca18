package generation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/abhisek/eikengen/internal/eiken"
)

const (
	maxStemLen        = 600
	maxPassageLen     = 4000
	maxExplanationLen = 1200
)

// blankPat matches the gap a grammar item asks the learner to fill.
var blankPat = regexp.MustCompile(`_{2,}|\(\s*\)`)

// normalize trims whitespace and drops choices from open-response types.
func normalize(q *eiken.Question) {
	q.Passage = strings.TrimSpace(q.Passage)
	q.Stem = strings.TrimSpace(q.Stem)
	q.Explanation = strings.TrimSpace(q.Explanation)
	for i, c := range q.Choices {
		q.Choices[i] = strings.TrimSpace(c)
	}
	if !q.QuestionType.HasChoices() {
		q.Choices = nil
		q.AnswerIndex = -1
	}
}

// checkStructure rejects items that no validator could meaningfully score.
func checkStructure(q *eiken.Question) error {
	if q.Stem == "" {
		return errors.New("stem is empty")
	}
	if len(q.Stem) > maxStemLen {
		return fmt.Errorf("stem exceeds %d characters", maxStemLen)
	}
	if len(q.Passage) > maxPassageLen {
		return fmt.Errorf("passage exceeds %d characters", maxPassageLen)
	}
	if q.Explanation == "" {
		return errors.New("explanation is empty")
	}
	if len(q.Explanation) > maxExplanationLen {
		return fmt.Errorf("explanation exceeds %d characters", maxExplanationLen)
	}

	switch q.QuestionType {
	case eiken.TypeLongReading, eiken.TypeListening, eiken.TypeReadingAloud:
		if q.Passage == "" {
			return fmt.Errorf("%s requires a passage", q.QuestionType)
		}
	}

	if !q.QuestionType.HasChoices() {
		return nil
	}
	if len(q.Choices) != 4 {
		return fmt.Errorf("expected 4 choices, got %d", len(q.Choices))
	}
	seen := make(map[string]bool, 4)
	for _, c := range q.Choices {
		if c == "" {
			return errors.New("empty choice")
		}
		key := strings.ToLower(c)
		if seen[key] {
			return fmt.Errorf("duplicate choice %q", c)
		}
		seen[key] = true
	}
	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Choices) {
		return fmt.Errorf("answer_index %d out of range", q.AnswerIndex)
	}
	if q.QuestionType == eiken.TypeGrammarFill && !blankPat.MatchString(q.Stem) {
		return errors.New("grammar item stem has no blank")
	}
	return nil
}
