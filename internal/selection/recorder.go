package selection

import (
	"context"
	"time"

	"github.com/abhisek/eikengen/internal/logging"
	"github.com/abhisek/eikengen/internal/store"
)

// Feedback is the downstream verdict on one selection.
type Feedback struct {
	Request Request
	Topic   store.Topic

	// Accepted marks the generated item as accepted.
	Accepted       bool
	CompletionTime time.Duration

	// Reason, when set on a rejection, blacklists the topic.
	Reason string
}

// Recorder applies selection outcomes to usage, statistics and blacklist
// state in one transaction per call. Every failure is returned as a
// *PersistenceWarning after being logged; callers must not abort on it.
type Recorder struct {
	repo   store.OutcomeRepo
	policy BlacklistPolicy
	log    *logging.Logger
	now    func() time.Time
}

// NewRecorder returns a recorder writing through repo.
func NewRecorder(repo store.OutcomeRepo, policy BlacklistPolicy, log *logging.Logger) *Recorder {
	if log == nil {
		log = logging.Nop()
	}
	return &Recorder{repo: repo, policy: policy, log: log, now: time.Now}
}

// Record applies fb. Selection count always moves; acceptance appends
// usage and a success; rejection counts a failure and blacklists when
// fb.Reason is set.
func (r *Recorder) Record(ctx context.Context, fb Feedback) (*store.BlacklistEntry, error) {
	o := r.outcome(fb.Request, fb.Topic)
	o.CountSelection = true
	if fb.Accepted {
		o.AppendUsage = true
		o.Success = true
		o.CompletionTime = fb.CompletionTime
	} else {
		o.Failure = true
		if fb.Reason != "" {
			o.Blacklist = r.change(fb.Reason)
		}
	}
	return r.apply(ctx, "record_outcome", o)
}

// RecordUsage appends a usage event and counts the selection.
func (r *Recorder) RecordUsage(ctx context.Context, req Request, topic store.Topic) error {
	o := r.outcome(req, topic)
	o.CountSelection = true
	o.AppendUsage = true
	_, err := r.apply(ctx, "record_usage", o)
	return err
}

// RecordSuccess counts a success and folds d into the running average.
func (r *Recorder) RecordSuccess(ctx context.Context, req Request, topic store.Topic, d time.Duration) error {
	o := r.outcome(req, topic)
	o.Success = true
	o.CompletionTime = d
	_, err := r.apply(ctx, "record_success", o)
	return err
}

// AddToBlacklist counts a failure and upserts the entry for key with a TTL
// scaled by the new failure count.
func (r *Recorder) AddToBlacklist(ctx context.Context, key store.BlacklistKey, reason string) (*store.BlacklistEntry, error) {
	o := store.Outcome{
		StudentID:    key.StudentID,
		Grade:        key.Grade,
		TopicGrade:   key.Grade,
		TopicCode:    key.TopicCode,
		QuestionType: key.QuestionType,
		At:           r.now(),
		Failure:      true,
		Blacklist:    r.change(reason),
	}
	return r.apply(ctx, "add_to_blacklist", o)
}

func (r *Recorder) outcome(req Request, topic store.Topic) store.Outcome {
	return store.Outcome{
		StudentID:    req.StudentID,
		SessionID:    req.SessionID,
		Grade:        req.Grade,
		TopicGrade:   topic.Grade,
		TopicCode:    topic.Code,
		QuestionType: req.QuestionType,
		At:           r.now(),
	}
}

func (r *Recorder) change(reason string) *store.BlacklistChange {
	now := r.now()
	return &store.BlacklistChange{
		Reason: reason,
		Expiry: func(failureCount int) *time.Time {
			return r.policy.ExpiresAt(reason, failureCount, now)
		},
	}
}

func (r *Recorder) apply(ctx context.Context, op string, o store.Outcome) (*store.BlacklistEntry, error) {
	entry, err := r.repo.RecordOutcome(ctx, o)
	if err != nil {
		w := &PersistenceWarning{Op: op, Err: err}
		persistenceWarnings.WithLabelValues(op).Inc()
		r.log.Warn("persistence warning",
			"op", op,
			"student", o.StudentID,
			"grade", o.Grade,
			"topic", o.TopicCode,
			"type", o.QuestionType,
			"error", err,
		)
		return nil, w
	}
	if entry != nil {
		blacklistUpserts.WithLabelValues(entry.Reason).Inc()
		r.log.Info("topic blacklisted",
			"student", entry.StudentID,
			"topic", entry.TopicCode,
			"reason", entry.Reason,
			"failures", entry.FailureCount,
			"expires_at", entry.ExpiresAt,
		)
	}
	return entry, nil
}
