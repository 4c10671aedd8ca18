package validation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/abhisek/eikengen/internal/eiken"
)

// Diversity rule names, also the keys of SessionState.Rules.
const (
	RuleAnswerSlot = "answer_slot"
	RuleGrammar    = "grammar_category"
)

// DiversityRule bounds how often one label may recur in a session.
type DiversityRule struct {
	// Window is the recent-history size for the frequency check.
	Window int `yaml:"window" validate:"min=1"`

	// MaxConsecutive is the longest allowed run of one label.
	MaxConsecutive int `yaml:"max_consecutive" validate:"min=1"`

	// MaxWindowFrequency caps the label's share of the recent window,
	// counting the candidate.
	MaxWindowFrequency float64 `yaml:"max_window_frequency" validate:"gt=0,lte=1"`

	// Ceiling caps the label's cumulative share once MinSamples labels
	// have been recorded.
	Ceiling    float64 `yaml:"ceiling" validate:"gt=0,lte=1"`
	MinSamples int     `yaml:"min_samples" validate:"gte=0"`
}

// DiversityConfig configures both rules and session retention.
type DiversityConfig struct {
	Answer     DiversityRule `yaml:"answer"`
	Grammar    DiversityRule `yaml:"grammar"`
	HistoryCap int           `yaml:"history_cap" validate:"min=1"`
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gt=0"`
}

// DefaultDiversityConfig returns the exam-tuned defaults.
func DefaultDiversityConfig() DiversityConfig {
	return DiversityConfig{
		Answer:     DiversityRule{Window: 4, MaxConsecutive: 2, MaxWindowFrequency: 0.5, Ceiling: 0.4, MinSamples: 5},
		Grammar:    DiversityRule{Window: 5, MaxConsecutive: 2, MaxWindowFrequency: 0.6, Ceiling: 0.5, MinSamples: 6},
		HistoryCap: 20,
		SessionTTL: 2 * time.Hour,
	}
}

// RuleState is one rule's history within a session.
type RuleState struct {
	// History holds the most recent labels, oldest first.
	History []string `json:"history"`

	// Counts and Total are cumulative for the session.
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// SessionState is everything the diversity stage remembers per session.
type SessionState struct {
	Rules     map[string]*RuleState `json:"rules"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewSessionState returns an empty state.
func NewSessionState() *SessionState {
	return &SessionState{Rules: map[string]*RuleState{}}
}

// Rule returns the state for name, creating it.
func (s *SessionState) Rule(name string) *RuleState {
	if s.Rules == nil {
		s.Rules = map[string]*RuleState{}
	}
	rs, ok := s.Rules[name]
	if !ok {
		rs = &RuleState{Counts: map[string]int{}}
		s.Rules[name] = rs
	}
	if rs.Counts == nil {
		rs.Counts = map[string]int{}
	}
	return rs
}

// Clone returns a deep copy.
func (s *SessionState) Clone() *SessionState {
	out := &SessionState{Rules: make(map[string]*RuleState, len(s.Rules)), UpdatedAt: s.UpdatedAt}
	for name, rs := range s.Rules {
		c := &RuleState{
			History: slices.Clone(rs.History),
			Counts:  make(map[string]int, len(rs.Counts)),
			Total:   rs.Total,
		}
		for k, v := range rs.Counts {
			c.Counts[k] = v
		}
		out.Rules[name] = c
	}
	return out
}

// check returns a non-empty reason when label would break the rule.
func (r DiversityRule) check(rs *RuleState, label string) string {
	h := rs.History

	if n := r.MaxConsecutive; len(h) >= n {
		run := true
		for _, l := range h[len(h)-n:] {
			if l != label {
				run = false
				break
			}
		}
		if run {
			return fmt.Sprintf("%q would appear %d times in a row", label, n+1)
		}
	}

	if prior := r.Window - 1; len(h) >= prior {
		c := 1
		for _, l := range h[len(h)-prior:] {
			if l == label {
				c++
			}
		}
		if freq := float64(c) / float64(r.Window); freq > r.MaxWindowFrequency {
			return fmt.Sprintf("%q would fill %.0f%% of the last %d items", label, freq*100, r.Window)
		}
	}

	if rs.Total >= r.MinSamples && rs.Total > 0 {
		share := float64(rs.Counts[label]+1) / float64(rs.Total+1)
		if share > r.Ceiling {
			return fmt.Sprintf("%q would reach %.0f%% of the session", label, share*100)
		}
	}
	return ""
}

func (rs *RuleState) record(label string, historyCap int) {
	rs.History = append(rs.History, label)
	if len(rs.History) > historyCap {
		rs.History = slices.Clone(rs.History[len(rs.History)-historyCap:])
	}
	rs.Counts[label]++
	rs.Total++
}

// DiversityValidator rejects candidates that would skew the session's
// answer positions or grammar focus. It is the only stateful stage: a
// passing candidate is recorded in the same store update that checked
// it, so it must be the last stage of a gate.
type DiversityValidator struct {
	store DiversityStore
	cfg   DiversityConfig
	now   func() time.Time
}

// NewDiversityValidator creates the validator over store.
func NewDiversityValidator(store DiversityStore, cfg DiversityConfig) *DiversityValidator {
	return &DiversityValidator{store: store, cfg: cfg, now: time.Now}
}

func (d *DiversityValidator) Name() string { return StageDiversity }

type labeled struct {
	name  string
	rule  DiversityRule
	label string
}

func (d *DiversityValidator) labels(q *eiken.Question) []labeled {
	var out []labeled
	if slot := AnswerSlot(q); slot != "" {
		out = append(out, labeled{RuleAnswerSlot, d.cfg.Answer, slot})
	}
	if q.QuestionType == eiken.TypeGrammarFill {
		out = append(out, labeled{RuleGrammar, d.cfg.Grammar, GrammarCategory(q)})
	}
	return out
}

func (d *DiversityValidator) Validate(ctx context.Context, q *eiken.Question, t Target) (Result, error) {
	labels := d.labels(q)
	if t.SessionID == "" || len(labels) == 0 {
		return Result{Stage: StageDiversity, Passed: true}, nil
	}

	var res Result
	err := d.store.Update(ctx, t.SessionID, func(st *SessionState) (bool, error) {
		res = Result{Stage: StageDiversity, Passed: true, Metrics: map[string]any{}}
		for _, l := range labels {
			res.Metrics[l.name] = l.label
			if reason := l.rule.check(st.Rule(l.name), l.label); reason != "" {
				res.Passed = false
				res.Diagnostic = fmt.Sprintf("%s: %s", l.name, reason)
				return false, nil
			}
		}
		for _, l := range labels {
			st.Rule(l.name).record(l.label, d.cfg.HistoryCap)
		}
		st.UpdatedAt = d.now()
		return true, nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("diversity state for session %s: %w", t.SessionID, err)
	}
	return res, nil
}

// Guidance names over-used answer slots and grammar categories so the
// next prompt can steer away from them.
func (d *DiversityValidator) Guidance(ctx context.Context, t Target) (string, error) {
	if t.SessionID == "" {
		return "", nil
	}
	st, err := d.store.Get(ctx, t.SessionID)
	if err != nil || st == nil {
		return "", err
	}

	var lines []string
	if rs, ok := st.Rules[RuleAnswerSlot]; ok && t.QuestionType.HasChoices() {
		if hot := overused(rs); len(hot) > 0 {
			lines = append(lines, fmt.Sprintf("Recent correct answers: %s. Make a different choice correct, avoid %s.",
				strings.Join(tail(rs.History, 4), ", "), strings.Join(hot, ", ")))
		}
	}
	if rs, ok := st.Rules[RuleGrammar]; ok && t.QuestionType == eiken.TypeGrammarFill {
		if hot := overused(rs); len(hot) > 0 {
			labels := make([]string, len(hot))
			for i, h := range hot {
				labels[i] = grammarLabels[h]
			}
			lines = append(lines, fmt.Sprintf("Test a different grammar point than %s.", strings.Join(labels, "; ")))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// overused returns up to three labels seen at least twice, most frequent
// first.
func overused(rs *RuleState) []string {
	type kv struct {
		label string
		n     int
	}
	var all []kv
	for l, n := range rs.Counts {
		if n >= 2 {
			all = append(all, kv{l, n})
		}
	}
	slices.SortFunc(all, func(a, b kv) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.label, b.label)
	})
	var out []string
	for _, e := range all[:min(3, len(all))] {
		out = append(out, e.label)
	}
	return out
}

func tail(s []string, n int) []string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
