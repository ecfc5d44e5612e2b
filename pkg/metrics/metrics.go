// Package metrics holds the Prometheus metrics of one expunge run.
//
// The job is not a long-running process, so nothing is served over HTTP.
// Metrics live in a private registry and are written once at the end of
// the run with WriteTextfile, for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric in this package.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// Expiry policy metrics
var (
	PoliciesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dovecot_expunge_policies_total",
			Help: "Total number of enabled expiry policies read from the database",
		},
	)

	PoliciesSkipped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dovecot_expunge_policies_skipped_total",
			Help: "Total number of expiry policies skipped before invoking doveadm",
		},
		[]string{"reason"},
	)

	MessagesListed = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dovecot_expunge_messages_listed_total",
			Help: "Total number of messages listed by doveadm fetch before expunging",
		},
	)

	ListingFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dovecot_expunge_listing_failures_total",
			Help: "Total number of doveadm fetch listings that failed or could not be parsed",
		},
	)

	ExpungeOutputs = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dovecot_expunge_expunge_output_total",
			Help: "Total number of doveadm expunge invocations that printed output",
		},
	)
)

// doveadm invocation metrics
var (
	DoveadmInvocations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dovecot_expunge_doveadm_invocations_total",
			Help: "Total number of doveadm invocations",
		},
		[]string{"command", "status"},
	)

	DoveadmDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dovecot_expunge_doveadm_duration_seconds",
			Help:    "Duration of doveadm invocations in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"command"},
	)
)

// Database metrics
var (
	DBQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dovecot_expunge_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		},
		[]string{"operation", "status"},
	)
)

// Run metrics
var (
	RunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "dovecot_expunge_last_run_duration_seconds",
			Help: "Duration of the last expunge run in seconds",
		},
	)

	RunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "dovecot_expunge_last_run_timestamp_seconds",
			Help: "Unix time the last expunge run finished",
		},
	)

	RunSuccess = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "dovecot_expunge_last_run_success",
			Help: "Whether the last expunge run processed every policy (1) or stopped early (0)",
		},
	)
)

// ObserveRun records the outcome of a finished run.
func ObserveRun(start time.Time, success bool) {
	end := time.Now()
	RunDuration.Set(end.Sub(start).Seconds())
	RunTimestamp.Set(float64(end.Unix()))
	if success {
		RunSuccess.Set(1)
	} else {
		RunSuccess.Set(0)
	}
}

// StatusLabel maps an error to the "status" label value.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// WriteTextfile writes the registry to path atomically, in Prometheus text format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
