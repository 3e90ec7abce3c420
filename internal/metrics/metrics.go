// Package metrics defines the Prometheus collectors for export runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ats_export"

var (
	// Runs counts finished export runs by mode and outcome
	// (done, empty, failed, busy, cancelled).
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Export runs by mode and outcome.",
	}, []string{"mode", "outcome"})

	// Duration observes wall time of export runs.
	Duration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "duration_seconds",
		Help:      "Export run duration.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"mode"})

	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Candidate listing pages requested.",
	})

	DetailFetches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detail_fetches_total",
		Help:      "Candidate detail requests issued.",
	})

	EnrichFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrich_failures_total",
		Help:      "Candidate detail requests that failed and fell back to summary data.",
	})

	Rows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_total",
		Help:      "Rows written to export files.",
	})

	Active = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active",
		Help:      "Export runs currently in progress.",
	})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
