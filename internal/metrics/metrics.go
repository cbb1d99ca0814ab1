// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distributor_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Allocation metrics
	FlattenCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distributor_flatten_calls_total",
		Help: "Total number of wallet group flatten operations",
	})

	FlatRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "distributor_flat_recipients",
		Help:    "Number of flat recipients produced per flatten",
		Buckets: []float64{1, 2, 4, 8, 12, 16, 20},
	})

	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distributor_validation_failures_total",
		Help: "Total number of allocations rejected by validation",
	})

	// Distribution metrics
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributor_submissions_total",
			Help: "Total number of distribution submissions",
		},
		[]string{"kind", "status"},
	)

	BasisPointDrift = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "distributor_bps_drift",
		Help:    "Distance in basis points between the rounded recipient sum and 10000",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	})

	// Scheduler metrics
	ScheduledExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributor_scheduled_executions_total",
			Help: "Total number of scheduled job executions",
		},
		[]string{"job", "status"},
	)

	ActiveSchedules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distributor_active_schedules",
		Help: "Number of configs with a registered recurring schedule",
	})

	// Backup metrics
	Backups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributor_backups_total",
			Help: "Total number of database backups",
		},
		[]string{"status"},
	)

	BackupSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distributor_last_backup_bytes",
		Help: "Compressed size of the last uploaded backup",
	})
)

// Status labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)
