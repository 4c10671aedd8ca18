package selection

import (
	"math"
	"time"

	"github.com/abhisek/eikengen/internal/store"
)

// Blacklist reasons.
const (
	ReasonVocabularyTooHard    = "vocabulary_too_hard"
	ReasonTextTooComplex       = "text_too_complex"
	ReasonStudentUninterested  = "student_uninterested"
	ReasonCulturalSensitivity  = "cultural_sensitivity"
	ReasonInappropriateContent = "inappropriate_content"
	ReasonTechnicalIssue       = "technical_issue"
)

// Severity ranks how strongly a reason should keep excluding a topic when
// the cascade relaxes.
type Severity string

const (
	SeverityTransient Severity = "transient"
	SeverityNormal    Severity = "normal"
	SeveritySevere    Severity = "severe"
)

// ReasonPolicy configures one blacklist reason.
type ReasonPolicy struct {
	BaseTTLDays int      `yaml:"base_ttl_days" validate:"min=0"`
	Permanent   bool     `yaml:"permanent"`
	Severity    Severity `yaml:"severity" validate:"omitempty,oneof=transient normal severe"`
}

// BlacklistPolicy turns a reason and failure count into an expiry.
type BlacklistPolicy struct {
	Reasons       map[string]ReasonPolicy `yaml:"reasons"`
	Default       ReasonPolicy            `yaml:"default"`
	Step          float64                 `yaml:"step" validate:"gte=0"`
	MaxMultiplier float64                 `yaml:"max_multiplier" validate:"gte=1"`
}

// DefaultBlacklistPolicy returns the standard reason table.
func DefaultBlacklistPolicy() BlacklistPolicy {
	return BlacklistPolicy{
		Reasons: map[string]ReasonPolicy{
			ReasonVocabularyTooHard:    {BaseTTLDays: 7, Severity: SeverityNormal},
			ReasonTextTooComplex:       {BaseTTLDays: 7, Severity: SeverityNormal},
			ReasonStudentUninterested:  {BaseTTLDays: 3, Severity: SeverityNormal},
			ReasonCulturalSensitivity:  {BaseTTLDays: 14, Severity: SeveritySevere},
			ReasonInappropriateContent: {Permanent: true, Severity: SeveritySevere},
			ReasonTechnicalIssue:       {BaseTTLDays: 1, Severity: SeverityTransient},
		},
		Default:       ReasonPolicy{BaseTTLDays: 3, Severity: SeverityNormal},
		Step:          0.5,
		MaxMultiplier: 2.0,
	}
}

// Reason returns the policy for reason, falling back to Default.
func (p BlacklistPolicy) Reason(reason string) ReasonPolicy {
	if rp, ok := p.Reasons[reason]; ok {
		return rp
	}
	return p.Default
}

// Multiplier is min(1 + step*(n-1), max) for the n-th failure. It never
// decreases as n grows.
func (p BlacklistPolicy) Multiplier(failureCount int) float64 {
	n := max(failureCount, 1)
	return math.Min(1+p.Step*float64(n-1), p.MaxMultiplier)
}

// TTLDays returns ceil(base * multiplier) and whether the reason is
// permanent, in which case days is 0.
func (p BlacklistPolicy) TTLDays(reason string, failureCount int) (days int, permanent bool) {
	rp := p.Reason(reason)
	if rp.Permanent {
		return 0, true
	}
	return int(math.Ceil(float64(rp.BaseTTLDays) * p.Multiplier(failureCount))), false
}

// ExpiresAt returns now + TTL, or nil for permanent reasons.
func (p BlacklistPolicy) ExpiresAt(reason string, failureCount int, now time.Time) *time.Time {
	days, permanent := p.TTLDays(reason, failureCount)
	if permanent {
		return nil
	}
	t := now.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

// Severe reports whether e keeps excluding under a relaxed cascade stage.
func (p BlacklistPolicy) Severe(e store.BlacklistEntry) bool {
	return e.ExpiresAt == nil || p.Reason(e.Reason).Severity == SeveritySevere
}

// RelaxMode selects the stage-2 blacklist predicate.
type RelaxMode string

const (
	// RelaxSevereOnly keeps only severe or permanent active entries.
	RelaxSevereOnly RelaxMode = "severe_only"
	// RelaxExpiredOnly excludes topics whose entry has already expired,
	// matching the legacy behaviour.
	RelaxExpiredOnly RelaxMode = "expired_only"
)

// blacklistFilter decides which topics an entry set excludes.
type blacklistFilter func(entries []store.BlacklistEntry, now time.Time) map[string]bool

func excludeActive(entries []store.BlacklistEntry, now time.Time) map[string]bool {
	out := make(map[string]bool)
	for _, e := range entries {
		if e.ActiveAt(now) {
			out[e.TopicCode] = true
		}
	}
	return out
}

func excludeSevere(policy BlacklistPolicy) blacklistFilter {
	return func(entries []store.BlacklistEntry, now time.Time) map[string]bool {
		out := make(map[string]bool)
		for _, e := range entries {
			if e.ActiveAt(now) && policy.Severe(e) {
				out[e.TopicCode] = true
			}
		}
		return out
	}
}

func excludeExpired(entries []store.BlacklistEntry, now time.Time) map[string]bool {
	out := make(map[string]bool)
	for _, e := range entries {
		if !e.ActiveAt(now) {
			out[e.TopicCode] = true
		}
	}
	return out
}
