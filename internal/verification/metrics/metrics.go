package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionOutcomes   *prometheus.CounterVec
	StageDurationMs   *prometheus.HistogramVec
	ProviderCalls     *prometheus.CounterVec
	ProviderLatencyMs *prometheus.HistogramVec
	VersionConflicts  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idverify_sessions_started_total",
			Help: "Total number of verification sessions started",
		}),
		SessionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idverify_session_outcomes_total",
			Help: "Terminal session outcomes by status and failure reason",
		}, []string{"status", "reason"}),
		StageDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idverify_stage_duration_ms",
			Help:    "Latency of verification stages in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"stage"}),
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idverify_provider_calls_total",
			Help: "Provider calls by provider and result",
		}, []string{"provider", "result"}),
		ProviderLatencyMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idverify_provider_latency_ms",
			Help:    "Provider round-trip latency in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"provider"}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idverify_session_version_conflicts_total",
			Help: "Optimistic concurrency conflicts on session writes",
		}),
	}
}

// Methods are nil-safe so callers can run without metrics wired (tests).

func (m *Metrics) IncrementSessionsStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

func (m *Metrics) RecordOutcome(status, reason string) {
	if m == nil {
		return
	}
	m.SessionOutcomes.WithLabelValues(status, reason).Inc()
}

func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDurationMs.WithLabelValues(stage).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}

func (m *Metrics) RecordProviderCall(provider, result string, start time.Time) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, result).Inc()
	m.ProviderLatencyMs.WithLabelValues(provider).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}

func (m *Metrics) IncrementVersionConflicts() {
	if m == nil {
		return
	}
	m.VersionConflicts.Inc()
}
