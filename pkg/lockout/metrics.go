package lockout

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the collectors a Tracker updates.
type Metrics struct {
	Degraded      prometheus.Gauge
	Failures      prometheus.Counter
	Lockouts      prometheus.Counter
	BackendErrors *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mfa_lockout_degraded",
			Help: "1 while the shared lockout backend is unreachable and the tracker runs on its in-process fallback.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mfa_lockout_failures_total",
			Help: "Failed verification attempts recorded.",
		}),
		Lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mfa_lockout_lockouts_total",
			Help: "Times a principal reached the attempt limit.",
		}),
		BackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mfa_lockout_backend_errors_total",
			Help: "Errors returned by the shared lockout backend.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(m.Degraded, m.Failures, m.Lockouts, m.BackendErrors)
	}
	return m
}
