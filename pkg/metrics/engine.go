package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records reservation engine outcomes.
type EngineMetrics struct {
	duration        *prometheus.HistogramVec
	applied         *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	conflictRetries prometheus.Counter
	clampAnomalies  prometheus.Counter
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_op_duration_seconds",
		Help:    "Duration of inventory ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_op_applied",
		Help: "Inventory transitions applied successfully.",
	}, []string{"op"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_op_rejected",
		Help: "Inventory transitions rejected, by reason.",
	}, []string{"op", "reason"})
	conflictRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_conflict_retries",
		Help: "Conditional writes retried after losing a storage race.",
	})
	clampAnomalies := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_clamp_anomalies",
		Help: "Saturating writes that clamped a counter at zero.",
	})
	reg.MustRegister(duration, applied, rejected, conflictRetries, clampAnomalies)
	return &EngineMetrics{
		duration:        duration,
		applied:         applied,
		rejected:        rejected,
		conflictRetries: conflictRetries,
		clampAnomalies:  clampAnomalies,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *EngineMetrics) ObserveDuration(op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncApplied increments the applied counter for the named operation.
func (m *EngineMetrics) IncApplied(op string) {
	if m == nil || m.applied == nil {
		return
	}
	m.applied.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncRejected increments the rejection counter for the operation and reason.
func (m *EngineMetrics) IncRejected(op, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(op), normalizeLabel(reason)).Inc()
}

// IncConflictRetry counts one internal retry after a lost storage race.
func (m *EngineMetrics) IncConflictRetry() {
	if m == nil || m.conflictRetries == nil {
		return
	}
	m.conflictRetries.Inc()
}

// IncClampAnomaly counts a saturating write that clamped at zero.
func (m *EngineMetrics) IncClampAnomaly() {
	if m == nil || m.clampAnomalies == nil {
		return
	}
	m.clampAnomalies.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
