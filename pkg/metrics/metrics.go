package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Stream metrics
	StreamOffsetCurrent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncer_stream_offset_current",
			Help: "Offset of the most recent transaction update handed to the batch writer",
		},
	)

	UpdatesProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "syncer_updates_processed_total",
			Help: "Total number of ledger updates projected and written",
		},
	)

	ReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncer_reconnects_total",
			Help: "Total number of stream reconnects by reason",
		},
		[]string{"reason"},
	)

	SupervisorBackoffSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncer_supervisor_backoff_seconds",
			Help: "Current backoff delay before the next supervisor retry",
		},
	)

	// Batch writer metrics
	BatchCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "syncer_batch_commit_duration_seconds",
			Help:    "Time taken to commit a batch of graph mutations",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncer_batch_commits_total",
			Help: "Total number of batch commits by trigger (size, time, final)",
		},
		[]string{"trigger"},
	)

	BatchStatementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "syncer_batch_statements_total",
			Help: "Total number of Cypher statements added to the batch writer",
		},
	)

	// Token provider metrics
	TokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncer_token_refresh_total",
			Help: "Total number of token refresh attempts by result",
		},
		[]string{"result"},
	)

	// ACS loader metrics
	ACSContractsLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "syncer_acs_contracts_loaded_total",
			Help: "Total number of active contracts loaded from the ACS snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(StreamOffsetCurrent)
	prometheus.MustRegister(UpdatesProcessedTotal)
	prometheus.MustRegister(ReconnectsTotal)
	prometheus.MustRegister(SupervisorBackoffSeconds)
	prometheus.MustRegister(BatchCommitDuration)
	prometheus.MustRegister(BatchCommitsTotal)
	prometheus.MustRegister(BatchStatementsTotal)
	prometheus.MustRegister(TokenRefreshTotal)
	prometheus.MustRegister(ACSContractsLoadedTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
