// Package metrics provides Prometheus metrics for the article index.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "folio"

var (
	// IndexBuilds counts index builds by mode (github, local) and outcome
	// (ok, aborted).
	IndexBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "builds_total",
			Help:      "Article index builds by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	IndexBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Article index build duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)

	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "articles",
			Help:      "Number of published articles in the last built index",
		},
	)

	RepoFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "github",
			Name:      "repo_failures_total",
			Help:      "Repositories skipped during an index build",
		},
		[]string{"repo"},
	)

	// SnapshotLookups counts index cache reads by result (hit, miss, error).
	SnapshotLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "snapshot_lookups_total",
			Help:      "Index snapshot reads by result",
		},
		[]string{"result"},
	)

	// ArticleLookups counts single-article resolutions by how they ended
	// (cached, direct, reverse, miss).
	ArticleLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "articles",
			Name:      "lookups_total",
			Help:      "Article lookups by resolution path",
		},
		[]string{"path"},
	)
)

// ObserveBuild records one finished index build.
func ObserveBuild(mode, outcome string, seconds float64, size int) {
	IndexBuilds.WithLabelValues(mode, outcome).Inc()
	IndexBuildDuration.WithLabelValues(mode).Observe(seconds)
	if outcome == "ok" {
		IndexSize.Set(float64(size))
	}
}
