// Package metrics holds the prometheus collectors for venuescope.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuescope_searches_total",
		Help: "Search requests by outcome",
	}, []string{"outcome"})

	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "venuescope_search_duration_seconds",
		Help:    "End-to-end search latency",
		Buckets: prometheus.DefBuckets,
	})

	SignatureResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuescope_signature_resolutions_total",
		Help: "Topic signature resolutions by outcome",
	}, []string{"outcome"})

	TrustChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuescope_trust_checks_total",
		Help: "Trust source checks by source and status",
	}, []string{"source", "status"})

	VerdictCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuescope_verdict_cache_total",
		Help: "Verdict cache lookups by result",
	}, []string{"result"})

	ExplanationRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuescope_explanation_requests_total",
		Help: "Explanation requests by outcome",
	}, []string{"outcome"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "venuescope_llm_generation_duration_seconds",
		Help:    "Generative call latency",
		Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60},
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuescope_llm_tokens_total",
		Help: "Tokens consumed by generative calls",
	}, []string{"model"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "venuescope_network_request_duration_seconds",
		Help:    "Outbound request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuescope_network_request_total",
		Help: "Outbound requests",
	}, []string{"component", "operation", "status"})
)

// MustRegister registers every collector with registerer
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SearchesTotal,
		SearchDuration,
		SignatureResolutions,
		TrustChecksTotal,
		VerdictCacheTotal,
		ExplanationRequests,
		LLMGenerationDuration,
		LLMTokensTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest records duration and status of an outbound request
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}

// ObserveLLMGeneration records latency and token use of one generation
func ObserveLLMGeneration(model string, duration time.Duration, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model).Add(float64(totalTokens))
	}
}
