// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "japa_advisor"

// Requirement lookup sources.
const (
	SourceCache    = "cache"
	SourceScrape   = "scrape"
	SourceFallback = "fallback"
)

var (
	// HTTPRequests counts served requests by chi route pattern.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// RoadmapGenerations counts generator calls by outcome.
	RoadmapGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roadmap_generations_total",
		Help:      "Roadmap generations by outcome (ok, timeout, malformed, error).",
	}, []string{"outcome"})

	// LLMLatency observes chat completion round trips.
	LLMLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "Latency of chat completion requests.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	// RequirementLookups counts requirement lookups by country and source.
	RequirementLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requirement_lookups_total",
		Help:      "Visa requirement lookups by country and source (cache, scrape, fallback).",
	}, []string{"country", "source"})

	// Submissions counts live-session submissions by terminal phase.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Live-session submissions by terminal phase.",
	}, []string{"phase"})

	// LiveSessions tracks open websocket sessions.
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_sessions",
		Help:      "Currently open live submission sessions.",
	})
)
