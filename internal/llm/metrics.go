package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abhisek/eikengen/internal/store"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "LLM requests by model, purpose and outcome.",
	}, []string{"model", "purpose", "outcome"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eikengen",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "LLM request latency.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
	}, []string{"model"})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "Tokens consumed by direction.",
	}, []string{"model", "direction"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "llm",
		Name:      "retries_total",
		Help:      "Resends after transient provider failures.",
	}, []string{"model", "reason"})

	costUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eikengen",
		Subsystem: "llm",
		Name:      "cost_usd_total",
		Help:      "Estimated spend for models with known pricing.",
	}, []string{"model"})
)

func observeRequest(d store.LLMRequestEventData, elapsed time.Duration) {
	outcome := "success"
	if !d.Success {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(d.Model, d.Purpose, outcome).Inc()
	requestLatency.WithLabelValues(d.Model).Observe(elapsed.Seconds())
	tokensTotal.WithLabelValues(d.Model, "input").Add(float64(d.InputTokens))
	tokensTotal.WithLabelValues(d.Model, "output").Add(float64(d.OutputTokens))
	if c := LookupCost(d.Model); c != nil {
		costUSD.WithLabelValues(d.Model).Add(c.Cost(d.InputTokens, d.OutputTokens))
	}
}
