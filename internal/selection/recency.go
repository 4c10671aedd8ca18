package selection

import (
	"math"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
)

// RecencyConfig sets the base recency window per question-type category.
type RecencyConfig struct {
	Windows       map[eiken.Category]int `yaml:"windows"`
	DefaultWindow int                    `yaml:"default_window" validate:"min=1"`
}

// DefaultRecencyConfig returns the exam-calibrated windows.
func DefaultRecencyConfig() RecencyConfig {
	return RecencyConfig{
		Windows: map[eiken.Category]int{
			eiken.CategorySpeaking:   5,
			eiken.CategoryWriting:    3,
			eiken.CategoryGrammar:    4,
			eiken.CategoryReading:    4,
			eiken.CategoryVocabulary: 4,
		},
		DefaultWindow: 4,
	}
}

// BaseWindow returns the unscaled window for qt.
func (c RecencyConfig) BaseWindow(qt eiken.QuestionType) int {
	if w, ok := c.Windows[qt.Category()]; ok && w > 0 {
		return w
	}
	if c.DefaultWindow > 0 {
		return c.DefaultWindow
	}
	return 1
}

// WindowSize scales the base window, never below 1.
func (c RecencyConfig) WindowSize(qt eiken.QuestionType, multiplier float64) int {
	return max(1, int(math.Floor(float64(c.BaseWindow(qt))*multiplier)))
}

// excludeRecent drops topics whose code is among the first window entries
// of recent (newest first).
func excludeRecent(topics []store.Topic, recent []string, window int) []store.Topic {
	if window > len(recent) {
		window = len(recent)
	}
	if window <= 0 {
		return topics
	}
	used := make(map[string]bool, window)
	for _, code := range recent[:window] {
		used[code] = true
	}
	return filterTopics(topics, func(t store.Topic) bool { return !used[t.Code] })
}

func filterTopics(topics []store.Topic, keep func(store.Topic) bool) []store.Topic {
	var out []store.Topic
	for _, t := range topics {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
