package lexicon

import (
	"context"
	"fmt"
	"sort"

	"github.com/abhisek/eikengen/internal/store"
)

// Analysis is the lexical profile of a text.
type Analysis struct {
	// Tokens is the number of word tokens after contraction expansion.
	Tokens int

	// Lemmas holds the unique resolved lemmas, sorted.
	Lemmas []string

	// Entries maps each lemma the lexicon knows to its entry. Lemmas not
	// present here are unscored.
	Entries map[string]store.LexiconEntry
}

// Analyzer turns text into scored lemmas.
type Analyzer struct {
	lex   Lexicon
	lemma Lemmatizer
}

// NewAnalyzer creates an Analyzer. A nil lemmatizer falls back to suffix
// stripping alone.
func NewAnalyzer(lex Lexicon, lemma Lemmatizer) *Analyzer {
	if lemma == nil {
		lemma = IdentityLemmatizer{}
	}
	return &Analyzer{lex: lex, lemma: lemma}
}

// Analyze tokenizes text, resolves each word to a lemma and looks all
// lemmas up in one batch. A word resolves to the first of its candidate
// forms the lexicon knows (dictionary lemma, surface form, stripped
// suffixes); a word with no known form keeps its dictionary lemma.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	tokens := Tokenize(text)

	candidates := make(map[string][]string, len(tokens))
	var lookup []string
	queued := make(map[string]bool)
	for _, tok := range tokens {
		if _, done := candidates[tok]; done {
			continue
		}
		forms := a.forms(tok)
		candidates[tok] = forms
		for _, f := range forms {
			if !queued[f] {
				queued[f] = true
				lookup = append(lookup, f)
			}
		}
	}

	found := map[string]store.LexiconEntry{}
	if len(lookup) > 0 {
		entries, err := a.lex.LookupLemmas(ctx, lookup)
		if err != nil {
			return nil, fmt.Errorf("lexicon lookup: %w", err)
		}
		for _, e := range entries {
			found[e.Lemma] = e
		}
	}

	res := &Analysis{Tokens: len(tokens), Entries: map[string]store.LexiconEntry{}}
	unique := map[string]bool{}
	for _, forms := range candidates {
		lemma := forms[0]
		for _, f := range forms {
			if e, ok := found[f]; ok {
				lemma = f
				res.Entries[f] = e
				break
			}
		}
		unique[lemma] = true
	}
	for l := range unique {
		res.Lemmas = append(res.Lemmas, l)
	}
	sort.Strings(res.Lemmas)
	return res, nil
}

func (a *Analyzer) forms(tok string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(a.lemma.Lemma(tok))
	add(tok)
	for _, f := range suffixForms(tok) {
		add(f)
	}
	return out
}
