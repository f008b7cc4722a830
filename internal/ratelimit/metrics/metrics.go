package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks   *prometheus.CounterVec
	Errors   prometheus.Counter
	Degraded prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_ratelimit_checks_total",
			Help: "Rate limit checks by endpoint class and result",
		}, []string{"class", "result"}),
		Errors: f.NewCounter(prometheus.CounterOpts{
			Name: "mandate_ratelimit_store_errors_total",
			Help: "Primary rate limit store failures",
		}),
		Degraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "mandate_ratelimit_degraded",
			Help: "1 while the limiter runs on its in-memory fallback",
		}),
	}
}

func (m *Metrics) IncrementCheck(class, result string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(class, result).Inc()
}

func (m *Metrics) IncrementError() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	v := 0.0
	if degraded {
		v = 1
	}
	m.Degraded.Set(v)
}
