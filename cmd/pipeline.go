package cmd

import (
	"context"
	"fmt"

	"github.com/abhisek/eikengen/internal/config"
	"github.com/abhisek/eikengen/internal/generation"
	"github.com/abhisek/eikengen/internal/lexicon"
	"github.com/abhisek/eikengen/internal/llm"
	"github.com/abhisek/eikengen/internal/selection"
	"github.com/abhisek/eikengen/internal/validation"
)

// newSelector builds the cascade over the database repos. A nil policy
// uses the configured epsilon with ambient randomness.
func newSelector(e *env, policy *selection.Policy) *selection.Selector {
	opts := []selection.Option{selection.WithLogger(e.log)}
	if policy != nil {
		opts = append(opts, selection.WithPolicy(policy))
	}
	return selection.NewSelector(selection.Deps{
		Topics:    e.store.TopicRepo(),
		Usage:     e.store.UsageRepo(),
		Blacklist: e.store.BlacklistRepo(),
		Stats:     e.store.StatsRepo(),
	}, e.cfg.Selection, opts...)
}

func newRecorder(e *env) *selection.Recorder {
	return selection.NewRecorder(e.store.OutcomeRepo(), e.cfg.Selection.Blacklist, e.log)
}

// newAnalyzer reads the lexicon from the database through an LRU cache.
// An empty database falls back to the built-in word list.
func newAnalyzer(ctx context.Context, e *env) (*lexicon.Analyzer, error) {
	lemma, err := lexicon.NewLemmatizer()
	if err != nil {
		return nil, fmt.Errorf("load lemmatizer: %w", err)
	}

	n, err := e.store.LexiconRepo().LexiconSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("count lexicon: %w", err)
	}
	if n == 0 {
		e.log.Warn("lexicon table is empty, using built-in word list", "hint", "eikengen lexicon import FILE.csv")
		entries, err := lexicon.Seed()
		if err != nil {
			return nil, fmt.Errorf("load built-in lexicon: %w", err)
		}
		return lexicon.NewAnalyzer(lexicon.NewMemory(entries...), lemma), nil
	}

	cached, err := lexicon.NewCached(e.store.LexiconRepo(), e.cfg.Validation.LexiconCache)
	if err != nil {
		return nil, err
	}
	return lexicon.NewAnalyzer(cached, lemma), nil
}

// newDiversityStore returns the configured session store and a cleanup func.
func newDiversityStore(ctx context.Context, cfg config.Config) (validation.DiversityStore, func(), error) {
	vc := cfg.Validation
	if vc.Backend != config.BackendRedis {
		return validation.NewMemoryStore(vc.MaxSessions, vc.Diversity.SessionTTL), func() {}, nil
	}
	rdb, err := validation.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect diversity store: %w", err)
	}
	return validation.NewRedisStore(rdb, cfg.Redis.Prefix, vc.Diversity.SessionTTL), func() { _ = rdb.Close() }, nil
}

// newGate assembles the three stages in order.
func newGate(analyzer *lexicon.Analyzer, div validation.DiversityStore, e *env) *validation.Gate {
	vc := e.cfg.Validation
	return validation.NewGate(e.log,
		validation.NewVocabularyValidator(analyzer, vc.Vocabulary),
		validation.NewComplexityValidator(analyzer, vc.Complexity),
		validation.NewDiversityValidator(div, vc.Diversity),
	)
}

// newOrchestrator wires the full generation loop. The returned func
// releases the diversity store.
func newOrchestrator(ctx context.Context, e *env) (*generation.Orchestrator, func(), error) {
	llmCfg := e.cfg.LLM
	if err := llmCfg.Validate(); err != nil {
		discovered, ok := llm.DiscoverConfig(llmCfg)
		if !ok {
			return nil, nil, fmt.Errorf("LLM provider not configured: %w", err)
		}
		llmCfg = discovered
		e.log.Info("using discovered LLM credentials", "provider", llmCfg.Provider)
	}
	provider, err := llm.NewProvider(ctx, llmCfg, e.store.EventRepo(), e.log)
	if err != nil {
		return nil, nil, err
	}

	analyzer, err := newAnalyzer(ctx, e)
	if err != nil {
		return nil, nil, err
	}
	div, closeDiv, err := newDiversityStore(ctx, e.cfg)
	if err != nil {
		return nil, nil, err
	}

	gcfg := e.cfg.Generation
	o := generation.NewOrchestrator(generation.Deps{
		Selector: newSelector(e, nil),
		Generator: generation.NewLLMGenerator(provider, generation.GeneratorConfig{
			MaxTokens:   llmCfg.MaxTokens,
			Temperature: llmCfg.Temperature,
		}),
		Gate:     newGate(analyzer, div, e),
		Recorder: newRecorder(e),
		Items:    e.store.ItemRepo(),
	}, gcfg,
		generation.WithPacer(generation.NewPacer(gcfg.RequestsPerMinute, gcfg.Burst)),
		generation.WithLogger(e.log),
	)
	return o, closeDiv, nil
}
