package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all flagging engine metrics
type Metrics struct {
	// Scan pass metrics
	ScanPassesTotal       prometheus.Counter
	ScanPassFailures      prometheus.Counter
	AppointmentsProcessed prometheus.Counter
	FlagsCreated          *prometheus.CounterVec
	ScanErrors            prometheus.Counter
	ScanDuration          prometheus.Histogram

	// Flag lifecycle metrics
	FlagsResolved prometheus.Counter
	FlagsAmended  prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// New creates and registers all flagging engine metrics
func New(namespace string) *Metrics {
	return &Metrics{
		ScanPassesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_passes_total",
			Help:      "Total number of flagging passes run",
		}),
		ScanPassFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_pass_failures_total",
			Help:      "Total number of flagging passes aborted at the query step",
		}),
		AppointmentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_processed_total",
			Help:      "Total number of candidate appointments evaluated",
		}),
		FlagsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_created_total",
			Help:      "Total number of flags created, by severity",
		}, []string{"severity"}),
		ScanErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_appointment_errors_total",
			Help:      "Total number of per-appointment failures during passes",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_pass_duration_seconds",
			Help:      "Time spent running a flagging pass",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		FlagsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_resolved_total",
			Help:      "Total number of flags resolved by operators",
		}),
		FlagsAmended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_amended_total",
			Help:      "Total number of flag amendments applied",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
