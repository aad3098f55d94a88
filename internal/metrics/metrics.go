// Package metrics registers the Prometheus instrumentation for the refresh
// pipeline and read API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshRuns counts refresh cycles by outcome (refreshed, skipped, error).
	RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cotlens",
		Subsystem: "refresh",
		Name:      "runs_total",
		Help:      "Refresh cycles by outcome",
	}, []string{"outcome"})

	// AssetRefreshes counts per-asset analysis outcomes within a cycle.
	AssetRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cotlens",
		Subsystem: "refresh",
		Name:      "assets_total",
		Help:      "Per-asset refresh outcomes",
	}, []string{"asset", "outcome"})

	// AnnotationFallbacks counts annotator failures that fell back to
	// deterministic template notes.
	AnnotationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cotlens",
		Subsystem: "annotate",
		Name:      "fallbacks_total",
		Help:      "Annotator failures recovered with template notes",
	})

	// FeedFetchDuration observes CFTC archive fetch latency.
	FeedFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cotlens",
		Subsystem: "feed",
		Name:      "fetch_duration_seconds",
		Help:      "CFTC archive fetch latency",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	})

	// HTTPRequests counts API requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cotlens",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "API requests by route and status",
	}, []string{"route", "status"})
)
