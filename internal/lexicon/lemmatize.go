package lexicon

import (
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Lemmatizer reduces an inflected word to its dictionary form.
type Lemmatizer interface {
	Lemma(word string) string
}

// NewLemmatizer loads the English golem dictionary.
func NewLemmatizer() (Lemmatizer, error) {
	l, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemmatizer: %w", err)
	}
	return l, nil
}

// IdentityLemmatizer returns words unchanged. Suffix fallbacks in the
// Analyzer still apply.
type IdentityLemmatizer struct{}

func (IdentityLemmatizer) Lemma(word string) string { return word }

// suffixForms proposes base forms by stripping common English inflections.
// Forms are ordered most to least likely; the caller keeps the first one
// the lexicon knows.
func suffixForms(w string) []string {
	var out []string
	add := func(s string) {
		if len(s) >= 2 {
			out = append(out, s)
		}
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		add(strings.TrimSuffix(w, "ies") + "y")
	case strings.HasSuffix(w, "es"):
		add(strings.TrimSuffix(w, "es"))
		add(strings.TrimSuffix(w, "s"))
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		add(strings.TrimSuffix(w, "s"))
	}
	switch {
	case strings.HasSuffix(w, "ied"):
		add(strings.TrimSuffix(w, "ied") + "y")
	case strings.HasSuffix(w, "ed"):
		stem := strings.TrimSuffix(w, "ed")
		add(stem)
		add(stem + "e")
		add(undouble(stem))
	}
	if strings.HasSuffix(w, "ing") {
		stem := strings.TrimSuffix(w, "ing")
		add(stem)
		add(stem + "e")
		add(undouble(stem))
	}
	switch {
	case strings.HasSuffix(w, "ier"):
		add(strings.TrimSuffix(w, "ier") + "y")
	case strings.HasSuffix(w, "er"):
		add(strings.TrimSuffix(w, "er"))
		add(strings.TrimSuffix(w, "r"))
	}
	switch {
	case strings.HasSuffix(w, "iest"):
		add(strings.TrimSuffix(w, "iest") + "y")
	case strings.HasSuffix(w, "est"):
		add(strings.TrimSuffix(w, "est"))
		add(strings.TrimSuffix(w, "st"))
	}
	if strings.HasSuffix(w, "ly") {
		add(strings.TrimSuffix(w, "ly"))
	}
	return out
}

// undouble turns "swimm" into "swim".
func undouble(stem string) string {
	n := len(stem)
	if n >= 2 && stem[n-1] == stem[n-2] {
		return stem[:n-1]
	}
	return ""
}
