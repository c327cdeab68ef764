package coordinate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// interactionsTotal counts dispatched interactions by kind.
	interactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelet_interactions_total",
		Help: "Interactions handled by kind",
	}, []string{"kind"})

	// suggestionsTotal counts suggestion outcomes: shown, accepted, cancelled, stale.
	suggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelet_suggestions_total",
		Help: "Suggestion lifecycle events by outcome",
	}, []string{"outcome"})

	// cacheStepsTotal counts keystrokes validated against the cached suggestion.
	cacheStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelet_cache_steps_total",
		Help: "Keystrokes checked against the cached suggestion by direction and result",
	}, []string{"direction", "result"})

	// generationsTotal counts generation requests by kind and result.
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelet_generations_total",
		Help: "Generation requests by kind and result",
	}, []string{"kind", "result"})

	// generationLatency tracks time from request to response.
	generationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codelet_generation_latency_seconds",
		Help:    "Time from generation request to response",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
	})

	// editRatiosTotal counts reported edit statistics by ratio.
	editRatiosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelet_edit_ratio_total",
		Help: "Reported suggestion retention by ratio",
	}, []string{"ratio"})
)
