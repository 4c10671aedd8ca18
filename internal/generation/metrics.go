package generation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal counts loop iterations by outcome.
	// Labels: outcome (accepted, rejected, transport_error, aborted)
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "generation",
		Name:      "attempts_total",
		Help:      "Generation attempts by outcome",
	}, []string{"outcome"})

	generatorLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eikengen",
		Subsystem: "generation",
		Name:      "generator_latency_seconds",
		Help:      "Content generator call latency in seconds",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
	})

	pacingWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eikengen",
		Subsystem: "generation",
		Name:      "pacing_wait_seconds",
		Help:      "Time spent waiting on the request pacer",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
	})

	// runsTotal counts Generate calls by how they ended.
	// Labels: result (complete, partial, cancelled, aborted)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "generation",
		Name:      "runs_total",
		Help:      "Generation runs by result",
	}, []string{"result"})
)
