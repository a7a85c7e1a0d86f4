package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generateRequests counts /generate calls.
	// Labels: model, outcome (ok, bad_request, unknown_model, refused, upstream_error, timeout,
	// unsupported_model, internal)
	generateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leantac",
		Subsystem: "generate",
		Name:      "requests_total",
		Help:      "Total tactic generation requests",
	}, []string{"model", "outcome"})

	// generateLatency measures end-to-end generation time, provider retries included.
	generateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leantac",
		Subsystem: "generate",
		Name:      "latency_seconds",
		Help:      "Tactic generation latency in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60, 120},
	}, []string{"model"})

	// generateCandidates tracks how many candidates a successful call returned.
	generateCandidates = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leantac",
		Subsystem: "generate",
		Name:      "candidates",
		Help:      "Number of ranked candidates per successful request",
		Buckets:   []float64{1, 2, 3, 4, 5},
	}, []string{"model"})

	// topConfidence is the score of the best candidate.
	topConfidence = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leantac",
		Subsystem: "generate",
		Name:      "top_confidence",
		Help:      "Confidence of the highest ranked candidate",
		Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"model"})
)
