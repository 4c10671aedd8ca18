package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/abhisek/eikengen/internal/eiken"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	After int       // id > After
	From  time.Time // created_at >= From
	To    time.Time // created_at <= To
}

// Topic is one catalog entry. Only Active changes after seeding.
type Topic struct {
	ID                int
	Code              string
	Grade             eiken.Grade
	LabelEN           string
	LabelJA           string
	Abstractness      int
	ContextType       string
	Scenario          string
	SubTopics         []string
	ArgumentAxes      []string
	Weight            float64
	OfficialFrequency float64
	Active            bool
}

// Key identifies the topic across grades.
func (t Topic) Key() TopicKey { return TopicKey{Grade: t.Grade, Code: t.Code} }

// TopicKey identifies a catalog entry. Codes may repeat across grades.
type TopicKey struct {
	Grade eiken.Grade
	Code  string
}

// TopicRepo is the topic catalog.
type TopicRepo interface {
	// UpsertTopic inserts or updates a topic by (grade, code).
	UpsertTopic(ctx context.Context, t Topic) error

	// ActiveTopics returns active topics for the given grades, or for every
	// grade when none are given.
	ActiveTopics(ctx context.Context, grades ...eiken.Grade) ([]Topic, error)

	// ListTopics returns all topics including inactive ones. An empty grade
	// lists every grade.
	ListTopics(ctx context.Context, grade eiken.Grade) ([]Topic, error)

	// SetActive flips the active flag. Topics are never deleted.
	SetActive(ctx context.Context, grade eiken.Grade, code string, active bool) error

	// SetSuitability records a fit score for (topic, question type).
	SetSuitability(ctx context.Context, key TopicKey, qt eiken.QuestionType, score float64) error

	// Suitability returns every fit score recorded for qt.
	Suitability(ctx context.Context, qt eiken.QuestionType) (map[TopicKey]float64, error)
}

// UsageEvent records an accepted selection. Append-only.
type UsageEvent struct {
	ID           int
	StudentID    string
	Grade        eiken.Grade
	TopicCode    string
	QuestionType eiken.QuestionType
	SessionID    string
	UsedAt       time.Time
}

// UsageRepo is the usage history log.
type UsageRepo interface {
	AppendUsage(ctx context.Context, e UsageEvent) error

	// RecentTopics returns topic codes of the most recent limit events for
	// (student, grade, question type), newest first. Codes may repeat.
	RecentTopics(ctx context.Context, studentID string, grade eiken.Grade, qt eiken.QuestionType, limit int) ([]string, error)
}

// BlacklistKey identifies a blacklist entry.
type BlacklistKey struct {
	StudentID    string
	Grade        eiken.Grade
	TopicCode    string
	QuestionType eiken.QuestionType
}

// BlacklistEntry excludes a topic for a student until ExpiresAt.
// A nil ExpiresAt never expires.
type BlacklistEntry struct {
	BlacklistKey
	Reason       string
	FailureCount int
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActiveAt reports whether the entry still excludes at now.
func (e BlacklistEntry) ActiveAt(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// BlacklistRepo is the keyed exclusion store.
type BlacklistRepo interface {
	// Entries returns every entry for (student, grade, question type),
	// expired ones included.
	Entries(ctx context.Context, studentID string, grade eiken.Grade, qt eiken.QuestionType) ([]BlacklistEntry, error)

	// ActiveEntries returns entries still in force at now.
	ActiveEntries(ctx context.Context, studentID string, grade eiken.Grade, qt eiken.QuestionType, now time.Time) ([]BlacklistEntry, error)

	// ListBlacklist returns all entries for a student, or every student
	// when studentID is empty.
	ListBlacklist(ctx context.Context, studentID string) ([]BlacklistEntry, error)

	// Upsert writes e, overwriting reason, failure count and expiry of an
	// existing entry with the same key.
	Upsert(ctx context.Context, e BlacklistEntry) error
}

// StatsKey identifies a statistics row. Grade is the topic's catalog grade.
type StatsKey struct {
	Grade        eiken.Grade
	TopicCode    string
	QuestionType eiken.QuestionType
}

// TopicStatistics aggregates outcomes per (grade, topic, question type).
type TopicStatistics struct {
	StatsKey
	SelectionCount  int
	SuccessCount    int
	FailureCount    int
	AvgCompletionMs float64
	LastSelectedAt  *time.Time
}

// SuccessRate is successes over selections, 0 before any selection.
func (s TopicStatistics) SuccessRate() float64 {
	if s.SelectionCount == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.SelectionCount)
}

// StatField names a counter column.
type StatField string

const (
	FieldSelection StatField = "selection_count"
	FieldSuccess   StatField = "success_count"
	FieldFailure   StatField = "failure_count"
)

// StatsFilter narrows ListStatistics. Zero values match everything.
type StatsFilter struct {
	Grade        eiken.Grade
	QuestionType eiken.QuestionType
}

// StatsRepo is the aggregated statistics store.
type StatsRepo interface {
	// Statistics returns every row for qt keyed by topic.
	Statistics(ctx context.Context, qt eiken.QuestionType) (map[TopicKey]TopicStatistics, error)

	ListStatistics(ctx context.Context, f StatsFilter) ([]TopicStatistics, error)

	// Increment bumps a single counter, creating the row if needed.
	Increment(ctx context.Context, key StatsKey, field StatField) error
}

// BlacklistChange asks RecordOutcome to upsert a blacklist entry. Expiry
// receives the post-increment failure count and returns the new expiry,
// nil for permanent.
type BlacklistChange struct {
	Reason string
	Expiry func(failureCount int) *time.Time
}

// Outcome is the feedback for one selection. All requested effects are
// applied in a single transaction.
type Outcome struct {
	StudentID    string
	SessionID    string
	Grade        eiken.Grade // requested grade; keys usage and blacklist
	TopicGrade   eiken.Grade // catalog grade of the topic; keys statistics
	TopicCode    string
	QuestionType eiken.QuestionType
	At           time.Time

	CountSelection bool
	AppendUsage    bool
	Success        bool
	Failure        bool
	CompletionTime time.Duration
	Blacklist      *BlacklistChange
}

// OutcomeRepo applies outcomes atomically across usage, statistics and
// blacklist.
type OutcomeRepo interface {
	// RecordOutcome returns the resulting blacklist entry when the outcome
	// carried a BlacklistChange.
	RecordOutcome(ctx context.Context, o Outcome) (*BlacklistEntry, error)
}

// LexiconEntry describes one lemma.
type LexiconEntry struct {
	Lemma string
	Level eiken.Level
	Zipf  float64
	POS   string
}

// LexiconRepo is the persisted word list.
type LexiconRepo interface {
	// LookupLemmas returns entries for the lemmas it knows; unknown lemmas
	// are omitted.
	LookupLemmas(ctx context.Context, lemmas []string) ([]LexiconEntry, error)

	// UpsertLexicon writes entries and returns how many were written.
	UpsertLexicon(ctx context.Context, entries []LexiconEntry) (int, error)

	LexiconSize(ctx context.Context) (int, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo records and reads LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns nil when id does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates token usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)

	// LLMUsageByModel aggregates token usage per model, for cost estimates.
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}

// LLMUsageStats is token usage for one purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMModelUsage is token usage for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// GeneratedItem is an accepted question with its provenance.
type GeneratedItem struct {
	ID              string
	StudentID       string
	SessionID       string
	Grade           eiken.Grade
	QuestionType    eiken.QuestionType
	TopicCode       string
	TopicGrade      eiken.Grade
	SelectionMethod string
	FallbackStage   int
	Content         json.RawMessage
	Validation      json.RawMessage
	CreatedAt       time.Time
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	StudentID string
	SessionID string
	Limit     int
}

// ItemRepo archives accepted items.
type ItemRepo interface {
	SaveItem(ctx context.Context, item GeneratedItem) error
	ListItems(ctx context.Context, f ItemFilter) ([]GeneratedItem, error)
}
