package eiken

import (
	"fmt"
	"strings"
)

// QuestionType identifies an exam task format.
type QuestionType string

const (
	TypeVocabulary    QuestionType = "vocabulary"
	TypeGrammarFill   QuestionType = "grammar_fill"
	TypeLongReading   QuestionType = "long_reading"
	TypeListening     QuestionType = "listening"
	TypeOpinionSpeech QuestionType = "opinion_speech"
	TypeReadingAloud  QuestionType = "reading_aloud"
	TypeEssay         QuestionType = "essay"
	TypeEmail         QuestionType = "email"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{
	TypeVocabulary, TypeGrammarFill, TypeLongReading, TypeListening,
	TypeOpinionSpeech, TypeReadingAloud, TypeEssay, TypeEmail,
}

// ParseQuestionType validates s against QuestionTypes.
func ParseQuestionType(s string) (QuestionType, error) {
	qt := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range QuestionTypes {
		if t == qt {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// Category groups question types that share recency behaviour.
type Category string

const (
	CategoryVocabulary Category = "vocabulary"
	CategoryGrammar    Category = "grammar"
	CategoryReading    Category = "reading"
	CategorySpeaking   Category = "speaking"
	CategoryWriting    Category = "writing"
)

// Category returns the recency category for t.
func (t QuestionType) Category() Category {
	switch t {
	case TypeVocabulary:
		return CategoryVocabulary
	case TypeGrammarFill:
		return CategoryGrammar
	case TypeLongReading, TypeListening:
		return CategoryReading
	case TypeOpinionSpeech, TypeReadingAloud:
		return CategorySpeaking
	case TypeEssay, TypeEmail:
		return CategoryWriting
	default:
		return ""
	}
}

// HasChoices reports whether the format is multiple choice.
func (t QuestionType) HasChoices() bool {
	switch t {
	case TypeVocabulary, TypeGrammarFill, TypeLongReading, TypeListening:
		return true
	}
	return false
}

// Question is one generated practice item.
type Question struct {
	TopicCode    string       `json:"topic_code"`
	Grade        Grade        `json:"grade"`
	QuestionType QuestionType `json:"question_type"`

	// Passage is the reading or listening text, empty for short items.
	Passage     string   `json:"passage,omitempty"`
	Stem        string   `json:"stem"`
	Choices     []string `json:"choices,omitempty"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// Text returns the learner-facing English that validators analyse:
// passage, stem and answer choices.
func (q *Question) Text() string {
	parts := make([]string, 0, 2+len(q.Choices))
	if q.Passage != "" {
		parts = append(parts, q.Passage)
	}
	if q.Stem != "" {
		parts = append(parts, q.Stem)
	}
	parts = append(parts, q.Choices...)
	return strings.Join(parts, "\n")
}

// CorrectChoice returns the correct choice text, or "" when the question has
// no choices or the index is out of range.
func (q *Question) CorrectChoice() string {
	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Choices) {
		return ""
	}
	return q.Choices[q.AnswerIndex]
}
