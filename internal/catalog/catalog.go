// Package catalog holds the built-in topic catalog and installs it into a
// TopicRepo.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
)

// ContextType classifies the situation a topic is set in.
type ContextType string

const (
	ContextDaily    ContextType = "daily"
	ContextPersonal ContextType = "personal"
	ContextSocial   ContextType = "social"
	ContextAcademic ContextType = "academic"
)

// SeedResult summarises a Seed run.
type SeedResult struct {
	Topics      int
	Suitability int
}

// Seed validates the built-in catalog and upserts it. Running it twice is
// harmless; topics are matched on (grade, code).
func Seed(ctx context.Context, repo store.TopicRepo) (SeedResult, error) {
	topics := Topics()
	if err := Validate(topics); err != nil {
		return SeedResult{}, err
	}

	var res SeedResult
	for _, t := range topics {
		if err := repo.UpsertTopic(ctx, t); err != nil {
			return res, fmt.Errorf("seed topic: %w", err)
		}
		res.Topics++
	}
	for _, s := range suitabilitySeed {
		if err := repo.SetSuitability(ctx, s.key, s.questionType, s.score); err != nil {
			return res, fmt.Errorf("seed suitability: %w", err)
		}
		res.Suitability++
	}
	return res, nil
}

// Validate checks structural rules for a topic set and reports every
// problem found.
func Validate(topics []store.Topic) error {
	var errs []string
	seen := make(map[store.TopicKey]bool, len(topics))
	perGrade := make(map[eiken.Grade]int)

	for _, t := range topics {
		key := t.Key()
		if seen[key] {
			errs = append(errs, fmt.Sprintf("duplicate topic %s/%s", t.Grade, t.Code))
		}
		seen[key] = true

		if !t.Grade.Valid() {
			errs = append(errs, fmt.Sprintf("topic %q: unknown grade %q", t.Code, t.Grade))
		}
		if t.Code == "" {
			errs = append(errs, fmt.Sprintf("grade %s: topic with empty code", t.Grade))
		}
		if t.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("topic %s/%s: weight must be > 0, got %v", t.Grade, t.Code, t.Weight))
		}
		if t.OfficialFrequency < 0 || t.OfficialFrequency > 1 {
			errs = append(errs, fmt.Sprintf("topic %s/%s: official frequency must be in [0, 1], got %v", t.Grade, t.Code, t.OfficialFrequency))
		}
		if t.Abstractness < 1 || t.Abstractness > 5 {
			errs = append(errs, fmt.Sprintf("topic %s/%s: abstractness must be in [1, 5], got %d", t.Grade, t.Code, t.Abstractness))
		}
		if t.Active {
			perGrade[t.Grade]++
		}
	}

	for _, g := range eiken.Grades {
		if perGrade[g] == 0 {
			errs = append(errs, fmt.Sprintf("grade %s has no active topics", g))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("topic catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
