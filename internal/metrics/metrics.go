// Package metrics holds the Prometheus collectors arbor exports on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arbor"

var (
	// TreesRegistered is the number of roots currently registered in the forest.
	TreesRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "trees_registered",
		Help:      "Conversation trees currently registered",
	})

	// BuildFailures counts conversations that could not be resolved or built.
	// Labels: reason (not_found, build)
	BuildFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "build_failures_total",
		Help:      "Conversations that failed to build",
	}, []string{"reason"})

	// Searches counts substring searches by entry point.
	// Labels: source (http, nats)
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Substring searches served",
	}, []string{"source"})

	// SearchHits observes how many nodes each search matched.
	SearchHits = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_hits",
		Help:      "Nodes matched per search",
		Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	})

	// HTTPRequests counts API requests.
	// Labels: route (chi route pattern), code (HTTP status)
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"route", "code"})
)

// ObserveSearch records one search and its hit count.
func ObserveSearch(source string, hits int) {
	Searches.WithLabelValues(source).Inc()
	SearchHits.Observe(float64(hits))
}
