// Package selection picks the topic that anchors each generated question.
// It walks an ordered cascade of stages that progressively relax recency,
// blacklist and grade constraints, then applies an ε-greedy policy to the
// first non-empty pool.
package selection

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/logging"
	"github.com/abhisek/eikengen/internal/store"
)

// Request asks for one topic.
type Request struct {
	StudentID        string
	Grade            eiken.Grade
	QuestionType     eiken.QuestionType
	SessionID        string
	ForceExploration bool
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if r.StudentID == "" {
		return fmt.Errorf("student id is required")
	}
	if !r.Grade.Valid() {
		return fmt.Errorf("unknown grade %q", r.Grade)
	}
	if _, err := eiken.ParseQuestionType(string(r.QuestionType)); err != nil {
		return err
	}
	return nil
}

// Selection is the chosen topic and how it was chosen.
type Selection struct {
	Topic                store.Topic
	Method               Method
	WeightScore          float64
	SuitabilityScore     float64
	FinalScore           float64
	FallbackStage        int
	StageName            string
	CandidatesConsidered int
}

// Config tunes the selector.
type Config struct {
	Epsilon    float64         `yaml:"epsilon" validate:"gte=0,lte=1"`
	Recency    RecencyConfig   `yaml:"recency"`
	Blacklist  BlacklistPolicy `yaml:"blacklist"`
	Stage2Mode RelaxMode       `yaml:"stage2_blacklist" validate:"oneof=severe_only expired_only"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Epsilon:    DefaultEpsilon,
		Recency:    DefaultRecencyConfig(),
		Blacklist:  DefaultBlacklistPolicy(),
		Stage2Mode: RelaxSevereOnly,
	}
}

// Deps are the stores the selector reads.
type Deps struct {
	Topics    store.TopicRepo
	Usage     store.UsageRepo
	Blacklist store.BlacklistRepo
	Stats     store.StatsRepo
}

// Selector runs the cascade. It holds no per-request state and is safe for
// concurrent use.
type Selector struct {
	deps   Deps
	cfg    Config
	stages []Stage
	policy *Policy
	log    *logging.Logger
	now    func() time.Time
}

// Option customizes a Selector.
type Option func(*Selector)

// WithPolicy replaces the ε-greedy policy, typically with a seeded one.
func WithPolicy(p *Policy) Option { return func(s *Selector) { s.policy = p } }

// WithStages replaces the cascade.
func WithStages(stages ...Stage) Option { return func(s *Selector) { s.stages = stages } }

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option { return func(s *Selector) { s.log = l } }

// WithClock sets the time source used for blacklist expiry checks.
func WithClock(now func() time.Time) Option { return func(s *Selector) { s.now = now } }

// NewSelector builds a selector with the default cascade.
func NewSelector(deps Deps, cfg Config, opts ...Option) *Selector {
	s := &Selector{
		deps:   deps,
		cfg:    cfg,
		stages: DefaultStages(cfg.Recency, cfg.Blacklist, cfg.Stage2Mode),
		policy: NewPolicy(cfg.Epsilon, nil),
		log:    logging.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Stages returns the cascade in evaluation order.
func (s *Selector) Stages() []Stage { return s.stages }

// Select returns a topic for req. It fails with an error matching
// ErrSelectionExhausted when every stage is empty. Selection has no side
// effects; callers report outcomes through a Recorder.
func (s *Selector) Select(ctx context.Context, req Request) (*Selection, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection request: %w", err)
	}

	pool, err := s.loadPool(ctx, req)
	if err != nil {
		return nil, err
	}

	for i, stage := range s.stages {
		topics := stage.Narrow(pool)
		if len(topics) == 0 {
			continue
		}

		cands, err := s.score(ctx, req.QuestionType, topics)
		if err != nil {
			return nil, err
		}
		picked, method := s.policy.Choose(cands, req.ForceExploration)

		sel := &Selection{
			Topic:                picked.Topic,
			Method:               method,
			WeightScore:          picked.WeightScore(),
			SuitabilityScore:     picked.Suitability,
			FinalScore:           picked.FinalScore(),
			FallbackStage:        i,
			StageName:            stage.Name(),
			CandidatesConsidered: len(cands),
		}
		observeSelection(sel, time.Since(start))
		s.log.Debug("topic selected",
			"student", req.StudentID,
			"grade", req.Grade,
			"type", req.QuestionType,
			"topic", sel.Topic.Code,
			"topic_grade", sel.Topic.Grade,
			"method", sel.Method,
			"stage", i,
			"candidates", sel.CandidatesConsidered,
		)
		return sel, nil
	}

	selectionExhausted.WithLabelValues(string(req.Grade), string(req.QuestionType)).Inc()
	return nil, &ExhaustedError{Request: req, Stages: len(s.stages)}
}

// loadPool fetches the catalog, recent usage and blacklist in parallel.
// History reads degrade to empty on failure; the catalog read does not.
func (s *Selector) loadPool(ctx context.Context, req Request) (*Pool, error) {
	pool := &Pool{Grade: req.Grade, QuestionType: req.QuestionType, Now: s.now()}
	window := MaxRecencyWindow(s.cfg.Recency, req.QuestionType)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		topics, err := s.deps.Topics.ActiveTopics(gctx)
		if err != nil {
			return fmt.Errorf("load active topics: %w", err)
		}
		pool.Active = topics
		return nil
	})
	g.Go(func() error {
		recent, err := s.deps.Usage.RecentTopics(gctx, req.StudentID, req.Grade, req.QuestionType, window)
		if err != nil {
			s.warn(&PersistenceWarning{Op: "recent_topics", Err: err}, "student", req.StudentID)
			return nil
		}
		pool.Recent = recent
		return nil
	})
	g.Go(func() error {
		entries, err := s.deps.Blacklist.Entries(gctx, req.StudentID, req.Grade, req.QuestionType)
		if err != nil {
			s.warn(&PersistenceWarning{Op: "blacklist_entries", Err: err}, "student", req.StudentID)
			return nil
		}
		pool.Blacklist = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pool, nil
}

// score attaches statistics and suitability to topics.
func (s *Selector) score(ctx context.Context, qt eiken.QuestionType, topics []store.Topic) ([]Candidate, error) {
	var (
		stats map[store.TopicKey]store.TopicStatistics
		suit  map[store.TopicKey]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if stats, err = s.deps.Stats.Statistics(gctx, qt); err != nil {
			s.warn(&PersistenceWarning{Op: "statistics", Err: err})
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if suit, err = s.deps.Topics.Suitability(gctx, qt); err != nil {
			return fmt.Errorf("load suitability: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(topics))
	for _, t := range topics {
		c := Candidate{Topic: t, Suitability: 1.0}
		if st, ok := stats[t.Key()]; ok {
			c.Stats = st
		}
		if v, ok := suit[t.Key()]; ok {
			c.Suitability = v
		}
		cands = append(cands, c)
	}
	return cands, nil
}

func (s *Selector) warn(w *PersistenceWarning, kv ...any) {
	persistenceWarnings.WithLabelValues(w.Op).Inc()
	s.log.Warn("persistence warning", append([]any{"op", w.Op, "error", w.Err}, kv...)...)
}
