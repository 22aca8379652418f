package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineRunMetrics records timing and table-level counters for batch runs.
type EngineRunMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec

	sessionsTotal         prometheus.Gauge
	attributedRevenue     prometheus.Gauge
	rawPurchaseRevenue    prometheus.Gauge
	unattributedPurchases prometheus.Gauge
	revenueMismatchOrders prometheus.Gauge
}

// NewEngineRunMetrics registers the engine metrics on the provided registerer.
func NewEngineRunMetrics(reg prometheus.Registerer) *EngineRunMetrics {
	if reg == nil {
		return &EngineRunMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_run_duration_seconds",
		Help:    "Duration of engine batch runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_run_success",
		Help: "Successful engine batch runs.",
	}, []string{"stage"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_run_failure",
		Help: "Failed engine batch runs.",
	}, []string{"stage"})

	sessionsTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_sessions_total",
		Help: "Sessions produced by the most recent run.",
	})
	attributedRevenue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_attributed_revenue",
		Help: "Revenue carried by attribution rows in the most recent run.",
	})
	rawPurchaseRevenue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_raw_purchase_revenue",
		Help: "Total revenue across all purchases seen by the most recent run.",
	})
	unattributedPurchases := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_unattributed_purchases",
		Help: "Purchases with no qualifying prior session in the most recent run.",
	})
	revenueMismatchOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_revenue_mismatch_orders",
		Help: "Deduplicated purchases whose line totals disagree with declared revenue.",
	})

	reg.MustRegister(
		duration, success, failure,
		sessionsTotal, attributedRevenue, rawPurchaseRevenue,
		unattributedPurchases, revenueMismatchOrders,
	)
	return &EngineRunMetrics{
		duration:              duration,
		success:               success,
		failure:               failure,
		sessionsTotal:         sessionsTotal,
		attributedRevenue:     attributedRevenue,
		rawPurchaseRevenue:    rawPurchaseRevenue,
		unattributedPurchases: unattributedPurchases,
		revenueMismatchOrders: revenueMismatchOrders,
	}
}

// ObserveDuration records the duration for the named stage.
func (m *EngineRunMetrics) ObserveDuration(stage string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named stage.
func (m *EngineRunMetrics) IncSuccess(stage string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncFailure increments the failure counter for the named stage.
func (m *EngineRunMetrics) IncFailure(stage string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(stage)).Inc()
}

// RunCounters mirrors the monitoring counters of the latest completed run.
type RunCounters struct {
	TotalSessions         int64
	AttributedRevenue     float64
	RawPurchaseRevenue    float64
	UnattributedPurchases int64
	RevenueMismatchOrders int64
}

// SetRunCounters publishes the latest run's table-level counters.
func (m *EngineRunMetrics) SetRunCounters(c RunCounters) {
	if m == nil || m.sessionsTotal == nil {
		return
	}
	m.sessionsTotal.Set(float64(c.TotalSessions))
	m.attributedRevenue.Set(c.AttributedRevenue)
	m.rawPurchaseRevenue.Set(c.RawPurchaseRevenue)
	m.unattributedPurchases.Set(float64(c.UnattributedPurchases))
	m.revenueMismatchOrders.Set(float64(c.RevenueMismatchOrders))
}

func normalizeLabel(stage string) string {
	if stage == "" {
		return "unknown"
	}
	return stage
}
