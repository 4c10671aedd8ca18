package selection

import (
	"time"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
)

// Pool is the data a cascade stage narrows. It is loaded once per request
// so stages stay pure.
type Pool struct {
	Grade        eiken.Grade
	QuestionType eiken.QuestionType
	Now          time.Time

	// Active holds every active topic across all grades.
	Active []store.Topic

	// Recent holds used topic codes for (student, grade, question type),
	// newest first.
	Recent []string

	// Blacklist holds every entry for (student, grade, question type),
	// expired ones included.
	Blacklist []store.BlacklistEntry
}

// grades returns active topics whose grade is in gs.
func (p *Pool) grades(gs []eiken.Grade) []store.Topic {
	want := make(map[eiken.Grade]bool, len(gs))
	for _, g := range gs {
		want[g] = true
	}
	return filterTopics(p.Active, func(t store.Topic) bool { return want[t.Grade] })
}

// Stage narrows a pool to candidate topics. An empty result sends the
// cascade to the next stage.
type Stage interface {
	Name() string
	Narrow(p *Pool) []store.Topic
}

// cascadeStage is the configurable stage used by the default cascade.
type cascadeStage struct {
	name       string
	gradeSteps int // -1 means every grade
	recency    float64
	recencyCfg RecencyConfig
	blacklist  blacklistFilter
}

func (s *cascadeStage) Name() string { return s.name }

func (s *cascadeStage) Narrow(p *Pool) []store.Topic {
	var topics []store.Topic
	if s.gradeSteps < 0 {
		topics = append(topics, p.Active...)
	} else {
		topics = p.grades(p.Grade.Within(s.gradeSteps))
	}
	if s.recency > 0 {
		topics = excludeRecent(topics, p.Recent, s.recencyCfg.WindowSize(p.QuestionType, s.recency))
	}
	if s.blacklist != nil {
		excluded := s.blacklist(p.Blacklist, p.Now)
		topics = filterTopics(topics, func(t store.Topic) bool { return !excluded[t.Code] })
	}
	return topics
}

// DefaultStages builds the seven-stage relaxation cascade. Stage i in the
// returned slice reports fallback stage i.
func DefaultStages(recency RecencyConfig, policy BlacklistPolicy, mode RelaxMode) []Stage {
	relaxed := excludeSevere(policy)
	if mode == RelaxExpiredOnly {
		relaxed = excludeExpired
	}
	return []Stage{
		&cascadeStage{name: "strict", gradeSteps: 0, recency: 1.0, recencyCfg: recency, blacklist: excludeActive},
		&cascadeStage{name: "half_recency", gradeSteps: 0, recency: 0.5, recencyCfg: recency, blacklist: excludeActive},
		&cascadeStage{name: "relaxed_blacklist", gradeSteps: 0, recency: 0.5, recencyCfg: recency, blacklist: relaxed},
		&cascadeStage{name: "no_blacklist", gradeSteps: 0, recency: 0.5, recencyCfg: recency},
		&cascadeStage{name: "adjacent_grades", gradeSteps: 1, recency: 0.3, recencyCfg: recency},
		&cascadeStage{name: "wide_grades", gradeSteps: 2, recency: 0.2, recencyCfg: recency},
		&cascadeStage{name: "emergency", gradeSteps: -1},
	}
}

// MaxRecencyWindow is the largest window any default stage needs for qt.
func MaxRecencyWindow(recency RecencyConfig, qt eiken.QuestionType) int {
	return recency.WindowSize(qt, 1.0)
}
