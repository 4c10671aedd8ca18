package validation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stageOutcomes counts verdicts per stage.
	// Labels: stage, outcome (passed, rejected, error)
	stageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "validation",
		Name:      "outcomes_total",
		Help:      "Validation verdicts by stage",
	}, []string{"stage", "outcome"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eikengen",
		Subsystem: "validation",
		Name:      "latency_seconds",
		Help:      "Validation stage latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}, []string{"stage"})

	// diversityConflicts counts optimistic-lock retries in shared stores.
	diversityConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "validation",
		Name:      "diversity_conflicts_total",
		Help:      "Diversity state updates retried after a concurrent write",
	})
)
