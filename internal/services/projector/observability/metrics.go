// Package observability holds the projector's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/louisbranch/courtapps/internal/services/projector/storage"
)

// Step outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeParked  = "parked"
	OutcomeFailed  = "failed"
)

// Metrics provides observability for event propagation. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Events handled by type and outcome
	Events *prometheus.CounterVec
	// Projection steps by projection kind and outcome
	Steps *prometheus.CounterVec
	// Skipped steps by projection kind and reason code
	Skips *prometheus.CounterVec
	// Event handling latency by type
	ApplyLatency *prometheus.HistogramVec
	// Outbox rows by status
	OutboxDepth *prometheus.GaugeVec
}

// NewMetrics registers the projector metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "courtapps_projector_events_total",
			Help: "Events handled by type and outcome",
		}, []string{"event_type", "outcome"}),
		Steps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "courtapps_projector_steps_total",
			Help: "Projection steps by projection kind and outcome",
		}, []string{"projection", "outcome"}),
		Skips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "courtapps_projector_skips_total",
			Help: "Skipped projection steps by projection kind and reason",
		}, []string{"projection", "reason"}),
		ApplyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courtapps_projector_apply_duration_seconds",
			Help:    "Duration of event propagation across all projections",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"event_type"}),
		OutboxDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "courtapps_projector_outbox_rows",
			Help: "Projection outbox rows by status",
		}, []string{"status"}),
	}
}

// ObserveEvent records one handled event.
func (m *Metrics) ObserveEvent(eventType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType, outcome).Inc()
	m.ApplyLatency.WithLabelValues(eventType).Observe(d.Seconds())
}

// ObserveStep records the outcome of one projection step.
func (m *Metrics) ObserveStep(projection, outcome string) {
	if m != nil {
		m.Steps.WithLabelValues(projection, outcome).Inc()
	}
}

// ObserveSkip records why a projection step was skipped.
func (m *Metrics) ObserveSkip(projection, reason string) {
	if m != nil {
		m.Skips.WithLabelValues(projection, reason).Inc()
	}
}

// SetOutboxDepth publishes the outbox summary.
func (m *Metrics) SetOutboxDepth(summary storage.OutboxSummary) {
	if m == nil {
		return
	}
	m.OutboxDepth.WithLabelValues(string(storage.OutboxPending)).Set(float64(summary.PendingCount))
	m.OutboxDepth.WithLabelValues(string(storage.OutboxProcessing)).Set(float64(summary.ProcessingCount))
	m.OutboxDepth.WithLabelValues(string(storage.OutboxFailed)).Set(float64(summary.FailedCount))
	m.OutboxDepth.WithLabelValues(string(storage.OutboxDead)).Set(float64(summary.DeadCount))
}
