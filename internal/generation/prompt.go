package generation

import (
	"fmt"
	"strings"

	"github.com/abhisek/eikengen/internal/eiken"
)

const systemPrompt = `You write practice items for the Eiken (STEP) English proficiency test taken by Japanese learners.

Rules:
- Write one item of the requested question type for the requested grade, anchored on the given topic.
- Keep every word of the passage, stem and choices at or below the target CEFR vocabulary level. Prefer high-frequency everyday words; avoid rare or technical vocabulary unless the grade is pre-1 or 1.
- Keep sentence length and structure appropriate for the target CEFR-J band.
- Multiple-choice items have exactly 4 distinct options and exactly one correct answer. Distractors must be plausible but clearly wrong to a learner who knows the point being tested.
- Grammar items mark the gap in the stem with "( )".
- Open-response items (speech, reading aloud, essay, email) leave choices empty and set answer_index to -1.
- The explanation is written in simple English and says why the answer is correct.
- Follow any avoidance guidance exactly; it keeps answer positions and grammar points varied within a session.`

// formatGuide describes the expected shape per question type.
var formatGuide = map[eiken.QuestionType]string{
	eiken.TypeVocabulary:    "A single sentence with a gap; choices are four words of the same part of speech.",
	eiken.TypeGrammarFill:   "A short sentence or two-line dialogue with one \"( )\" gap testing a single grammar point.",
	eiken.TypeLongReading:   "A passage of several paragraphs followed by one comprehension question.",
	eiken.TypeListening:     "A short dialogue or announcement script as the passage, then one comprehension question.",
	eiken.TypeOpinionSpeech: "A question asking for the learner's opinion, answerable in 30 to 60 seconds of speech.",
	eiken.TypeReadingAloud:  "A short paragraph to read aloud as the passage, with a related question as the stem.",
	eiken.TypeEssay:         "An essay prompt stating a position question and two points the learner should address.",
	eiken.TypeEmail:         "An email from a foreign friend as the passage; the stem asks the learner to reply.",
}

// buildUserMessage renders the per-item instructions.
func buildUserMessage(input Input) string {
	t := input.Topic
	var b strings.Builder

	fmt.Fprintf(&b, "Grade: %s\n", input.Grade.Label())
	fmt.Fprintf(&b, "Target vocabulary level: CEFR %s or below\n", input.Grade.TargetCEFR())
	fmt.Fprintf(&b, "Target text band: CEFR-J %s\n", input.Grade.TargetBand())
	fmt.Fprintf(&b, "Question type: %s\n", input.QuestionType)
	if g, ok := formatGuide[input.QuestionType]; ok {
		fmt.Fprintf(&b, "Format: %s\n", g)
	}

	b.WriteString("\nTopic: ")
	b.WriteString(t.LabelEN)
	if t.LabelJA != "" {
		fmt.Fprintf(&b, " (%s)", t.LabelJA)
	}
	b.WriteString("\n")
	if t.Scenario != "" {
		fmt.Fprintf(&b, "Scenario: %s\n", t.Scenario)
	}
	if t.ContextType != "" {
		fmt.Fprintf(&b, "Context: %s, abstractness %d/5\n", t.ContextType, t.Abstractness)
	}
	if len(t.SubTopics) > 0 {
		b.WriteString("Sub-topics to draw from:\n")
		b.WriteString(numbered(t.SubTopics, 5))
		b.WriteString("\n")
	}
	if len(t.ArgumentAxes) > 0 && opinionType(input.QuestionType) {
		b.WriteString("Possible argument axes:\n")
		b.WriteString(numbered(t.ArgumentAxes, 4))
		b.WriteString("\n")
	}

	if input.Guidance != "" {
		b.WriteString("\nVariety guidance for this session:\n")
		b.WriteString(input.Guidance)
		b.WriteString("\n")
	}
	if input.Hint != "" {
		b.WriteString("\nThe previous attempt was rejected:\n")
		b.WriteString(input.Hint)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func opinionType(qt eiken.QuestionType) bool {
	return qt == eiken.TypeOpinionSpeech || qt == eiken.TypeEssay
}

// numbered formats items as a numbered list, keeping at most limit entries.
func numbered(items []string, limit int) string {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	return strings.TrimRight(b.String(), "\n")
}
