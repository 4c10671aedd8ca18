package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/llm"
	"github.com/abhisek/eikengen/internal/logging"
	"github.com/abhisek/eikengen/internal/selection"
	"github.com/abhisek/eikengen/internal/store"
	"github.com/abhisek/eikengen/internal/validation"
)

// TopicSelector picks the topic for one attempt.
type TopicSelector interface {
	Select(ctx context.Context, req selection.Request) (*selection.Selection, error)
}

// Gate validates candidates and offers steering hints.
type Gate interface {
	Check(ctx context.Context, q *eiken.Question, t validation.Target) ([]validation.Result, error)
	Guidance(ctx context.Context, t validation.Target) string
}

// OutcomeRecorder applies selection feedback. Errors are warnings only.
type OutcomeRecorder interface {
	Record(ctx context.Context, fb selection.Feedback) (*store.BlacklistEntry, error)
}

// Config tunes the generation loop.
type Config struct {
	AttemptMultiplier int           `yaml:"attempt_multiplier" validate:"gte=1"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=1"`
	Burst             int           `yaml:"burst" validate:"gte=1"`
	CallTimeout       time.Duration `yaml:"call_timeout" validate:"gt=0"`
	MaxDiagnostics    int           `yaml:"max_diagnostics" validate:"gte=1"`
	Parallelism       int           `yaml:"parallelism" validate:"gte=1"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AttemptMultiplier: 3,
		RequestsPerMinute: 450,
		Burst:             50,
		CallTimeout:       60 * time.Second,
		MaxDiagnostics:    10,
		Parallelism:       4,
	}
}

// NewPacer returns a token bucket admitting rpm calls per minute.
func NewPacer(rpm, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(rpm)/60), burst)
}

// Request asks for Count accepted items.
type Request struct {
	StudentID    string
	Grade        eiken.Grade
	QuestionType eiken.QuestionType
	Count        int
	SessionID    string
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if r.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", r.Count)
	}
	return r.selection().Validate()
}

func (r Request) selection() selection.Request {
	return selection.Request{
		StudentID:    r.StudentID,
		Grade:        r.Grade,
		QuestionType: r.QuestionType,
		SessionID:    r.SessionID,
	}
}

// Outcome is how one attempt ended.
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeRejected       Outcome = "rejected"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeAborted        Outcome = "aborted"
)

// Attempt records one loop iteration.
type Attempt struct {
	Number     int
	TopicCode  string
	Stage      int
	Method     selection.Method
	Results    []validation.Result
	Outcome    Outcome
	Diagnostic string
	Duration   time.Duration
}

// Item is an accepted question with its provenance.
type Item struct {
	ID        string
	Question  *eiken.Question
	Selection *selection.Selection
	Results   []validation.Result
}

// Result is what a run produced. Attempts == len(Accepted) + RejectedCount
// unless the run was aborted.
type Result struct {
	Request       Request
	Accepted      []Item
	RejectedCount int
	Attempts      int

	// Errors samples attempt diagnostics, followed by a note explaining
	// any shortfall.
	Errors    []string
	Log       []Attempt
	Cancelled bool
}

// Complete reports whether the quota was met.
func (r *Result) Complete() bool { return len(r.Accepted) == r.Request.Count }

// Deps are the collaborators of an Orchestrator. Items may be nil.
type Deps struct {
	Selector  TopicSelector
	Generator ContentGenerator
	Gate      Gate
	Recorder  OutcomeRecorder
	Items     store.ItemRepo
}

// Orchestrator runs the bounded generate-and-validate loop.
// It is safe for concurrent use; runs share the pacer.
type Orchestrator struct {
	deps  Deps
	cfg   Config
	pacer *rate.Limiter
	log   *logging.Logger
	now   func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPacer replaces the pacer built from Config.
func WithPacer(l *rate.Limiter) Option { return func(o *Orchestrator) { o.pacer = l } }

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// NewOrchestrator wires the loop.
func NewOrchestrator(deps Deps, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps: deps,
		cfg:  cfg,
		log:  logging.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.pacer == nil {
		o.pacer = NewPacer(cfg.RequestsPerMinute, cfg.Burst)
	}
	return o
}

// Generate produces up to req.Count accepted items within
// Count × AttemptMultiplier attempts. Selection exhaustion and fatal
// generator errors abort the run and are returned alongside the partial
// result. Cancellation is not an error: the partial result carries a note.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	res := &Result{Request: req}
	maxAttempts := req.Count * max(1, o.cfg.AttemptMultiplier)
	log := o.log.With("student", req.StudentID, "grade", req.Grade, "type", req.QuestionType, "session", req.SessionID)
	var hint string

	for len(res.Accepted) < req.Count && res.Attempts < maxAttempts {
		// The deadline is honoured between attempts, never mid-call.
		if err := ctx.Err(); err != nil {
			o.cancel(res, log, err)
			return res, nil
		}
		waitStart := time.Now()
		if err := o.pacer.Wait(ctx); err != nil {
			o.cancel(res, log, err)
			return res, nil
		}
		pacingWait.Observe(time.Since(waitStart).Seconds())

		res.Attempts++
		att, item, err := o.attempt(context.WithoutCancel(ctx), req, res.Attempts, hint)
		res.Log = append(res.Log, att)
		attemptsTotal.WithLabelValues(string(att.Outcome)).Inc()

		if err != nil {
			res.Errors = append(res.Errors, "aborted: "+att.Diagnostic)
			runsTotal.WithLabelValues("aborted").Inc()
			log.Error("generation aborted", "attempt", att.Number, "error", err)
			return res, err
		}

		switch att.Outcome {
		case OutcomeAccepted:
			res.Accepted = append(res.Accepted, *item)
			hint = ""
			log.Info("item accepted", "attempt", att.Number, "topic", att.TopicCode, "stage", att.Stage)
		default:
			res.RejectedCount++
			o.diagnose(res, fmt.Sprintf("attempt %d (%s): %s", att.Number, att.TopicCode, att.Diagnostic))
			hint = att.Diagnostic
		}
	}

	if res.Complete() {
		runsTotal.WithLabelValues("complete").Inc()
	} else {
		runsTotal.WithLabelValues("partial").Inc()
		res.Errors = append(res.Errors, fmt.Sprintf("quota not met: %d of %d accepted after %d attempts",
			len(res.Accepted), req.Count, res.Attempts))
		log.Warn("quota not met", "accepted", len(res.Accepted), "attempts", res.Attempts)
	}
	return res, nil
}

// GenerateBatch runs reqs concurrently, at most Parallelism at a time.
// Results line up with reqs; a run that failed validation has a nil entry.
func (o *Orchestrator) GenerateBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(max(1, o.cfg.Parallelism))
	for i, r := range reqs {
		g.Go(func() error {
			res, err := o.Generate(ctx, r)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("student %s: %w", r.StudentID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// attempt runs one select → generate → validate → record iteration.
// A non-nil error aborts the run.
func (o *Orchestrator) attempt(ctx context.Context, req Request, n int, hint string) (Attempt, *Item, error) {
	att := Attempt{Number: n}
	sreq := req.selection()

	sel, err := o.deps.Selector.Select(ctx, sreq)
	if err != nil {
		att.Outcome = OutcomeAborted
		att.Diagnostic = err.Error()
		return att, nil, fmt.Errorf("select topic: %w", err)
	}
	att.TopicCode = sel.Topic.Code
	att.Stage = sel.FallbackStage
	att.Method = sel.Method

	target := validation.Target{Grade: req.Grade, QuestionType: req.QuestionType, SessionID: req.SessionID}
	input := Input{
		Topic:        sel.Topic,
		Grade:        req.Grade,
		QuestionType: req.QuestionType,
		Guidance:     o.deps.Gate.Guidance(ctx, target),
		Hint:         hint,
	}

	start := o.now()
	q, err := o.callGenerator(llm.WithSubject(ctx, llm.Subject{StudentID: req.StudentID, SessionID: req.SessionID}), input)
	att.Duration = o.now().Sub(start)
	feedback := selection.Feedback{Request: sreq, Topic: sel.Topic}

	if err != nil {
		te := classify(err)
		att.Diagnostic = te.Error()
		if !te.Retryable {
			att.Outcome = OutcomeAborted
			return att, nil, te
		}
		att.Outcome = OutcomeTransportError
		if te.InvalidOutput {
			feedback.Reason = selection.ReasonTechnicalIssue
			o.record(ctx, feedback)
		}
		o.log.Warn("generator call failed", "attempt", n, "topic", sel.Topic.Code, "error", err)
		return att, nil, nil
	}

	results, err := o.deps.Gate.Check(ctx, q, target)
	att.Results = results
	if err != nil {
		att.Outcome = OutcomeRejected
		var rej *validation.RejectedError
		if errors.As(err, &rej) {
			att.Diagnostic = fmt.Sprintf("%s: %s", rej.Stage, rej.Diagnostic)
			feedback.Reason = rejectionReason(rej.Stage)
		} else {
			// A stage that could not run says nothing about the topic.
			att.Diagnostic = err.Error()
			o.log.Warn("validation unavailable", "attempt", n, "error", err)
		}
		o.record(ctx, feedback)
		return att, nil, nil
	}

	feedback.Accepted = true
	feedback.CompletionTime = att.Duration
	o.record(ctx, feedback)

	item := &Item{ID: uuid.NewString(), Question: q, Selection: sel, Results: results}
	o.save(ctx, req, item)
	att.Outcome = OutcomeAccepted
	return att, item, nil
}

func (o *Orchestrator) callGenerator(ctx context.Context, input Input) (*eiken.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	q, err := o.deps.Generator.Generate(ctx, input)
	generatorLatency.Observe(time.Since(start).Seconds())
	return q, err
}

// rejectionReason maps a failing stage to a blacklist reason. Diversity
// is about the session, not the topic, so it blacklists nothing.
func rejectionReason(stage string) string {
	switch stage {
	case validation.StageVocabulary:
		return selection.ReasonVocabularyTooHard
	case validation.StageComplexity:
		return selection.ReasonTextTooComplex
	default:
		return ""
	}
}

func (o *Orchestrator) record(ctx context.Context, fb selection.Feedback) {
	// The recorder logs its own warnings.
	_, _ = o.deps.Recorder.Record(ctx, fb)
}

func (o *Orchestrator) save(ctx context.Context, req Request, item *Item) {
	if o.deps.Items == nil {
		return
	}
	content, err := json.Marshal(item.Question)
	if err != nil {
		o.log.Warn("encode item failed", "item", item.ID, "error", err)
		return
	}
	results, err := json.Marshal(item.Results)
	if err != nil {
		o.log.Warn("encode validation failed", "item", item.ID, "error", err)
		return
	}
	err = o.deps.Items.SaveItem(ctx, store.GeneratedItem{
		ID:              item.ID,
		StudentID:       req.StudentID,
		SessionID:       req.SessionID,
		Grade:           req.Grade,
		QuestionType:    req.QuestionType,
		TopicCode:       item.Selection.Topic.Code,
		TopicGrade:      item.Selection.Topic.Grade,
		SelectionMethod: string(item.Selection.Method),
		FallbackStage:   item.Selection.FallbackStage,
		Content:         content,
		Validation:      results,
		CreatedAt:       o.now(),
	})
	if err != nil {
		o.log.Warn("save item failed", "item", item.ID, "error", err)
	}
}

func (o *Orchestrator) diagnose(res *Result, msg string) {
	if len(res.Errors) < o.cfg.MaxDiagnostics {
		res.Errors = append(res.Errors, msg)
	}
}

func (o *Orchestrator) cancel(res *Result, log *logging.Logger, err error) {
	res.Cancelled = true
	res.Errors = append(res.Errors, fmt.Sprintf("cancelled after %d attempts with %d of %d accepted: %v",
		res.Attempts, len(res.Accepted), res.Request.Count, err))
	runsTotal.WithLabelValues("cancelled").Inc()
	log.Info("generation cancelled", "attempts", res.Attempts, "accepted", len(res.Accepted))
}
