package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module.
type Metrics struct {
	// Refusals by violated rule
	Refusals *prometheus.CounterVec

	Executions prometheus.Counter

	// Append failures by kind and reason: duplicate, invalid, storage
	AppendFailures *prometheus.CounterVec

	// Append latency by kind, including policy load and binding
	AppendLatency *prometheus.HistogramVec

	// Verifications by result: valid, mismatch
	Verifications *prometheus.CounterVec
}

// New registers the ledger metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Refusals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_refusals_total",
			Help: "Refusal records appended, by violated rule",
		}, []string{"rule"}),

		Executions: factory.NewCounter(prometheus.CounterOpts{
			Name: "mandate_executions_total",
			Help: "Execution records appended",
		}),

		AppendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_ledger_append_failures_total",
			Help: "Ledger appends that failed, by kind and reason",
		}, []string{"kind", "reason"}),

		AppendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mandate_ledger_append_duration_seconds",
			Help:    "Duration of ledger appends by record kind",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),

		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_ledger_verifications_total",
			Help: "Record binding verifications by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementRefusal(rule string) {
	if m != nil {
		m.Refusals.WithLabelValues(rule).Inc()
	}
}

func (m *Metrics) IncrementExecution() {
	if m != nil {
		m.Executions.Inc()
	}
}

func (m *Metrics) IncrementAppendFailure(kind, reason string) {
	if m != nil {
		m.AppendFailures.WithLabelValues(kind, reason).Inc()
	}
}

// ObserveAppendLatency records the duration of one append.
func (m *Metrics) ObserveAppendLatency(kind string, d time.Duration) {
	if m != nil {
		m.AppendLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementVerification(result string) {
	if m != nil {
		m.Verifications.WithLabelValues(result).Inc()
	}
}
