// Package metrics defines Prometheus metrics for folioctl.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folioctl_api_request_duration_seconds",
			Help:    "Okapi API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folioctl_api_requests_total",
			Help: "Total Okapi API requests",
		},
		[]string{"method", "status"},
	)

	ClassifierProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folioctl_classifier_probes_total",
			Help: "Identifier classification probes by inferred kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RecordChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folioctl_record_changes_total",
			Help: "Applied, skipped and failed record mutations",
		},
		[]string{"outcome"},
	)

	RecordDeletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folioctl_record_deletions_total",
			Help: "Record deletions by record kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	BackupsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "folioctl_backups_written_total",
			Help: "Pre-mutation record snapshots written to the backup store",
		},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestDuration, APIRequests,
		ClassifierProbes, RecordChanges, RecordDeletions,
		BackupsWritten,
	)
}
