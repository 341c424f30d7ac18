// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Source metrics
	SourceFetches     *prometheus.CounterVec
	SourceErrors      *prometheus.CounterVec
	SourceRecords     *prometheus.CounterVec
	SourceLatency     *prometheus.HistogramVec
	RecordsDropped    *prometheus.CounterVec
	FallbackSkipped   prometheus.Counter
	CycleDuplicates   prometheus.Counter
	EnrichmentLookups *prometheus.CounterVec

	// Scoring and filter metrics
	ScoreDistribution *prometheus.HistogramVec
	FilterDecisions   *prometheus.CounterVec
	SeenStateSize     prometheus.Gauge
	SeenStateResets   prometheus.Counter

	// Alert metrics
	AlertsEmitted *prometheus.CounterVec
	EmitErrors    *prometheus.CounterVec

	// Cycle metrics
	CycleRunsTotal *prometheus.CounterVec
	CycleDuration  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers metrics on reg.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "runner_scout"
	}
	factory := promauto.With(reg)

	return &Metrics{
		SourceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Total number of source fetches by status",
		}, []string{"source", "status"}),
		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "errors_total",
			Help:      "Total number of source failures by kind",
		}, []string{"source", "kind"}),
		SourceRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "records_total",
			Help:      "Total number of raw records fetched",
		}, []string{"source"}),
		SourceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_latency_seconds",
			Help:      "Source fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		RecordsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "records_dropped_total",
			Help:      "Total number of records dropped during normalization or prefilter",
		}, []string{"source", "reason"}),
		FallbackSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "fallback_skipped_total",
			Help:      "Cycles in which fallback sources were skipped",
		}),
		CycleDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "duplicates_total",
			Help:      "Candidates removed as duplicates within a cycle",
		}),
		EnrichmentLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "lookups_total",
			Help:      "Metadata lookups by chain and outcome",
		}, []string{"chain", "outcome"}),

		ScoreDistribution: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "runner_score",
			Help:      "Distribution of runner scores",
			Buckets:   []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
		}, []string{"chain"}),
		FilterDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "decisions_total",
			Help:      "Filter decisions by chain and reason",
		}, []string{"chain", "reason"}),
		SeenStateSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "seen",
			Name:      "identities",
			Help:      "Identities currently held in the seen-state",
		}),
		SeenStateResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seen",
			Name:      "resets_total",
			Help:      "Bulk resets of the seen-state",
		}),

		AlertsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "emitted_total",
			Help:      "Alerts delivered by sink",
		}, []string{"sink"}),
		EmitErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "emit_errors_total",
			Help:      "Alert delivery failures by sink",
		}, []string{"sink"}),

		CycleRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of poll cycles by status",
		}, []string{"status"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful poll cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSourceFetch records one adapter call. kind is empty on success.
func RecordSourceFetch(source string, records int, seconds float64, kind string) {
	DefaultMetrics.SourceLatency.WithLabelValues(source).Observe(seconds)
	if kind != "" {
		DefaultMetrics.SourceFetches.WithLabelValues(source, "error").Inc()
		DefaultMetrics.SourceErrors.WithLabelValues(source, kind).Inc()
		return
	}
	DefaultMetrics.SourceFetches.WithLabelValues(source, "ok").Inc()
	DefaultMetrics.SourceRecords.WithLabelValues(source).Add(float64(records))
}

// RecordDropped records a record dropped before aggregation.
func RecordDropped(source, reason string) {
	DefaultMetrics.RecordsDropped.WithLabelValues(source, reason).Inc()
}

// RecordFallbackSkipped increments the fallback-skipped counter.
func RecordFallbackSkipped() {
	DefaultMetrics.FallbackSkipped.Inc()
}

// RecordDuplicates adds within-cycle duplicates.
func RecordDuplicates(n int) {
	DefaultMetrics.CycleDuplicates.Add(float64(n))
}

// RecordEnrichment records a metadata lookup outcome.
func RecordEnrichment(chain, outcome string) {
	DefaultMetrics.EnrichmentLookups.WithLabelValues(chain, outcome).Inc()
}

// RecordScore observes a runner score.
func RecordScore(chain string, score float64) {
	DefaultMetrics.ScoreDistribution.WithLabelValues(chain).Observe(score)
}

// RecordFilterDecision counts a filter outcome.
func RecordFilterDecision(chain, reason string) {
	DefaultMetrics.FilterDecisions.WithLabelValues(chain, reason).Inc()
}

// UpdateSeenState sets the seen-state size gauge.
func UpdateSeenState(size int) {
	DefaultMetrics.SeenStateSize.Set(float64(size))
}

// RecordSeenReset increments the seen-state reset counter.
func RecordSeenReset() {
	DefaultMetrics.SeenStateResets.Inc()
}

// RecordEmit records alert delivery for one sink.
func RecordEmit(sink string, alerts int, err error) {
	if err != nil {
		DefaultMetrics.EmitErrors.WithLabelValues(sink).Inc()
		return
	}
	DefaultMetrics.AlertsEmitted.WithLabelValues(sink).Add(float64(alerts))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordCycle records a poll cycle.
func RecordCycle(status string, durationSeconds float64, finishedAtUnix int64) {
	DefaultMetrics.CycleRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulCycle.Set(float64(finishedAtUnix))
	}
}
