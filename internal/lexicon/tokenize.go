package lexicon

import (
	"regexp"
	"strings"
)

var (
	wordPattern     = regexp.MustCompile(`[A-Za-z]+(?:['’][A-Za-z]+)*`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

// contractions maps a clitic to the word it stands for.
var contractions = map[string]string{
	"n't": "not",
	"'re": "be",
	"'m":  "be",
	"'ll": "will",
	"'ve": "have",
	"'d":  "would",
	"'s":  "",
}

// irregularNegatives have stems that are not a plain prefix.
var irregularNegatives = map[string][]string{
	"can't":   {"can", "not"},
	"won't":   {"will", "not"},
	"shan't":  {"shall", "not"},
	"ain't":   {"be", "not"},
	"o'clock": {"o'clock"},
}

// Tokenize splits text into lower-case words, expanding contractions.
func Tokenize(text string) []string {
	raw := wordPattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.ToLower(strings.ReplaceAll(w, "’", "'"))
		if parts, ok := irregularNegatives[w]; ok {
			out = append(out, parts...)
			continue
		}
		out = append(out, splitContraction(w)...)
	}
	return out
}

func splitContraction(w string) []string {
	for clitic, full := range contractions {
		if len(w) > len(clitic) && strings.HasSuffix(w, clitic) {
			stem := strings.TrimSuffix(w, clitic)
			if full == "" {
				return []string{stem}
			}
			return []string{stem, full}
		}
	}
	if i := strings.IndexByte(w, '\''); i > 0 {
		return []string{w[:i]}
	}
	return []string{w}
}

// Sentences splits text on terminal punctuation, dropping empty pieces.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
