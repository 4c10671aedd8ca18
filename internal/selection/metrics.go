package selection

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// selectionsTotal counts successful selections.
	// Labels: method, stage
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "selection",
		Name:      "selections_total",
		Help:      "Topic selections by policy method and fallback stage",
	}, []string{"method", "stage"})

	selectionExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "selection",
		Name:      "exhausted_total",
		Help:      "Selections where every cascade stage was empty",
	}, []string{"grade", "question_type"})

	selectionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eikengen",
		Subsystem: "selection",
		Name:      "latency_seconds",
		Help:      "Topic selection latency in seconds",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})

	// persistenceWarnings counts swallowed store failures.
	// Labels: op
	persistenceWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "selection",
		Name:      "persistence_warnings_total",
		Help:      "Best-effort store operations that failed",
	}, []string{"op"})

	blacklistUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "selection",
		Name:      "blacklist_upserts_total",
		Help:      "Blacklist entries written by reason",
	}, []string{"reason"})
)

func observeSelection(sel *Selection, d time.Duration) {
	selectionsTotal.WithLabelValues(string(sel.Method), strconv.Itoa(sel.FallbackStage)).Inc()
	selectionLatency.Observe(d.Seconds())
}
