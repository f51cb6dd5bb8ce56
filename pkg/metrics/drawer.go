package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DrawerMetrics records operational counters for drawer session activity.
type DrawerMetrics struct {
	sessionsOpened *prometheus.CounterVec
	sessionsClosed *prometheus.CounterVec
	movements      *prometheus.CounterVec
	varianceAbs    prometheus.Histogram
}

// NewDrawerMetrics registers the drawer metrics on the provided registerer.
func NewDrawerMetrics(reg prometheus.Registerer) *DrawerMetrics {
	if reg == nil {
		return &DrawerMetrics{}
	}
	sessionsOpened := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawer_sessions_opened_total",
		Help: "Drawer sessions opened.",
	}, []string{"location"})
	sessionsClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawer_sessions_closed_total",
		Help: "Drawer sessions closed, by final status.",
	}, []string{"status"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cash_movements_total",
		Help: "Cash movements recorded, by movement type.",
	}, []string{"type"})
	varianceAbs := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "drawer_variance_abs",
		Help:    "Absolute variance observed at session close, in currency units.",
		Buckets: []float64{0.01, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
	reg.MustRegister(sessionsOpened, sessionsClosed, movements, varianceAbs)
	return &DrawerMetrics{
		sessionsOpened: sessionsOpened,
		sessionsClosed: sessionsClosed,
		movements:      movements,
		varianceAbs:    varianceAbs,
	}
}

// IncSessionOpened increments the opened counter for the given location.
func (d *DrawerMetrics) IncSessionOpened(location string) {
	if d == nil || d.sessionsOpened == nil {
		return
	}
	d.sessionsOpened.WithLabelValues(normalizeLabel(location)).Inc()
}

// IncSessionClosed increments the closed counter for the final status.
func (d *DrawerMetrics) IncSessionClosed(status string) {
	if d == nil || d.sessionsClosed == nil {
		return
	}
	d.sessionsClosed.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncMovement increments the movement counter for the given type.
func (d *DrawerMetrics) IncMovement(movementType string) {
	if d == nil || d.movements == nil {
		return
	}
	d.movements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// ObserveVariance records the absolute variance of a closed session.
func (d *DrawerMetrics) ObserveVariance(absVariance float64) {
	if d == nil || d.varianceAbs == nil {
		return
	}
	d.varianceAbs.Observe(absVariance)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
