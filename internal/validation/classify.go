package validation

import (
	"regexp"
	"strings"

	"github.com/abhisek/eikengen/internal/eiken"
)

// Grammar categories tracked for grammar_fill items.
const (
	GrammarModalVerb    = "modal_verb"
	GrammarBeVerb       = "be_verb"
	GrammarGeneralVerb  = "general_verb"
	GrammarWhQuestion   = "wh_question"
	GrammarProgressive  = "progressive"
	GrammarToInfinitive = "to_infinitive"
	GrammarGerund       = "gerund"
	GrammarConjunction  = "conjunction"
	GrammarComparative  = "comparative"
	GrammarOther        = "other"
)

var grammarLabels = map[string]string{
	GrammarModalVerb:    "modal verbs (can/will/should)",
	GrammarBeVerb:       "be-verbs (am/is/are/was/were)",
	GrammarGeneralVerb:  "general verbs (play/go/study)",
	GrammarWhQuestion:   "wh-questions (what/where/when)",
	GrammarProgressive:  "progressive forms (be + -ing)",
	GrammarToInfinitive: "to-infinitives (want to, like to)",
	GrammarGerund:       "gerunds (-ing as a noun)",
	GrammarConjunction:  "conjunctions (because/when/if)",
	GrammarComparative:  "comparatives (bigger/better/more)",
	GrammarOther:        "other grammar",
}

var (
	whWords          = wordSet("what", "where", "when", "who", "whom", "whose", "which", "why", "how")
	modalWords       = wordSet("can", "will", "shall", "should", "must", "may", "might", "would", "could")
	beWords          = wordSet("am", "is", "are", "was", "were", "be", "been", "being")
	conjunctionWords = wordSet("because", "when", "if", "but", "and", "or", "so", "although", "while", "though", "until", "unless")
	comparativeWords = wordSet("than", "more", "most", "better", "best", "worse", "worst", "less", "least")
	generalVerbs     = wordSet("play", "go", "come", "do", "have", "make", "take", "get", "see", "know", "think", "say", "eat", "drink", "read", "write", "study", "live", "work", "like", "want", "need")

	blank            = `(?:_{2,}|\(\s*\))`
	progressivePat   = regexp.MustCompile(`\b(?:am|is|are|was|were)\s+(?:\w+ing\b|` + blank + `)`)
	toInfinitivePat  = regexp.MustCompile(`\bto\s+` + blank + `|^to\s+[a-z]+$`)
	choiceWordPat    = regexp.MustCompile(`[a-z]+`)
	comparativeShape = regexp.MustCompile(`^[a-z]{3,}(?:er|est)$`)
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// AnswerSlot returns the letter of the correct choice, or "" when q has no
// usable choices.
func AnswerSlot(q *eiken.Question) string {
	if !q.QuestionType.HasChoices() || q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Choices) || q.AnswerIndex > 25 {
		return ""
	}
	return string(rune('A' + q.AnswerIndex))
}

// GrammarCategory classifies a grammar_fill item by what its blank tests.
// Rules run in priority order and the first match wins.
func GrammarCategory(q *eiken.Question) string {
	stem := strings.ToLower(strings.TrimSpace(q.Stem))
	choices := make([]string, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = strings.ToLower(strings.TrimSpace(c))
	}
	correct := strings.ToLower(strings.TrimSpace(q.CorrectChoice()))

	if first := firstWord(stem); whWords[first] {
		return GrammarWhQuestion
	}
	if countChoices(choices, modalWords) >= 2 {
		return GrammarModalVerb
	}
	if countChoices(choices, beWords) >= 2 {
		return GrammarBeVerb
	}
	if progressivePat.MatchString(stem) && strings.HasSuffix(correct, "ing") {
		return GrammarProgressive
	}
	if toInfinitivePat.MatchString(stem) || toInfinitivePat.MatchString(correct) {
		return GrammarToInfinitive
	}
	if countChoices(choices, conjunctionWords) >= 2 {
		return GrammarConjunction
	}
	if countChoices(choices, comparativeWords) >= 1 || countShape(choices, comparativeShape) >= 2 || containsWord(stem, "than") {
		return GrammarComparative
	}
	if strings.HasSuffix(correct, "ing") {
		return GrammarGerund
	}
	if countChoices(choices, generalVerbs) >= 1 {
		return GrammarGeneralVerb
	}
	return GrammarOther
}

func firstWord(s string) string { return choiceWordPat.FindString(s) }

// countChoices counts choices containing at least one word from set.
func countChoices(choices []string, set map[string]bool) int {
	n := 0
	for _, c := range choices {
		for _, w := range choiceWordPat.FindAllString(c, -1) {
			if set[w] {
				n++
				break
			}
		}
	}
	return n
}

func countShape(choices []string, pat *regexp.Regexp) int {
	n := 0
	for _, c := range choices {
		if pat.MatchString(c) {
			n++
		}
	}
	return n
}

func containsWord(s, word string) bool {
	for _, w := range choiceWordPat.FindAllString(s, -1) {
		if w == word {
			return true
		}
	}
	return false
}
