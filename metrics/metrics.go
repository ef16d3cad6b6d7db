package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morakib_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"severity", "source"},
	)

	InvestigationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morakib_investigations_submitted_total",
			Help: "Total number of investigations submitted",
		},
		[]string{"conclusion"},
	)

	IrisExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morakib_iris_exports_total",
			Help: "Total number of alerts exported to the DFIR platform",
		},
		[]string{"mode", "outcome"},
	)

	SOPProgressSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "morakib_sop_progress_saves_total",
			Help: "Total number of SOP progress saves",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "morakib_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	StatsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morakib_stats_cache_requests_total",
			Help: "Dashboard stats cache lookups by result",
		},
		[]string{"result"},
	)
)
