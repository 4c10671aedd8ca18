package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/logging"
)

// Gate runs validators in order and stops at the first failure.
type Gate struct {
	validators []Validator
	log        *logging.Logger
}

// NewGate builds a gate. Order matters: a stage that commits state on
// success (diversity) must come last.
func NewGate(log *logging.Logger, validators ...Validator) *Gate {
	if log == nil {
		log = logging.Nop()
	}
	return &Gate{validators: validators, log: log}
}

// Stages returns validator names in order.
func (g *Gate) Stages() []string {
	names := make([]string, len(g.validators))
	for i, v := range g.validators {
		names[i] = v.Name()
	}
	return names
}

// Check returns every result produced up to and including the first
// failure. The error is a *RejectedError when a stage failed, or a wrapped
// infrastructure error when a stage could not run.
func (g *Gate) Check(ctx context.Context, q *eiken.Question, t Target) ([]Result, error) {
	results := make([]Result, 0, len(g.validators))
	for _, v := range g.validators {
		start := time.Now()
		res, err := v.Validate(ctx, q, t)
		stageLatency.WithLabelValues(v.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			stageOutcomes.WithLabelValues(v.Name(), "error").Inc()
			return results, fmt.Errorf("%s validator: %w", v.Name(), err)
		}
		if res.Stage == "" {
			res.Stage = v.Name()
		}
		results = append(results, res)
		if !res.Passed {
			stageOutcomes.WithLabelValues(v.Name(), "rejected").Inc()
			g.log.Info("candidate rejected",
				"stage", res.Stage,
				"grade", t.Grade,
				"type", t.QuestionType,
				"topic", q.TopicCode,
				"diagnostic", res.Diagnostic,
			)
			return results, &RejectedError{Stage: res.Stage, Diagnostic: res.Diagnostic}
		}
		stageOutcomes.WithLabelValues(v.Name(), "passed").Inc()
	}
	return results, nil
}

// Guidance collects steering hints from every stage that offers them.
// Hint failures are logged and skipped.
func (g *Gate) Guidance(ctx context.Context, t Target) string {
	var hints []string
	for _, v := range g.validators {
		guide, ok := v.(Guide)
		if !ok {
			continue
		}
		h, err := guide.Guidance(ctx, t)
		if err != nil {
			g.log.Warn("guidance unavailable", "stage", v.Name(), "session", t.SessionID, "error", err)
			continue
		}
		if h != "" {
			hints = append(hints, h)
		}
	}
	return strings.Join(hints, "\n")
}
