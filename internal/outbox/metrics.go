package outbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the outbox relay.
type Metrics struct {
	Published     prometheus.Counter
	BatchFailures prometheus.Counter
	BatchLatency  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "mandate_outbox_published_total",
			Help: "Outbox events published to the stream",
		}),
		BatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mandate_outbox_batch_failures_total",
			Help: "Outbox batches that failed and were left for retry",
		}),
		BatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mandate_outbox_batch_duration_seconds",
			Help:    "Duration of a successful outbox batch, including produce",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) IncrementFailures() {
	if m != nil {
		m.BatchFailures.Inc()
	}
}

func (m *Metrics) ObserveBatchLatency(d time.Duration) {
	if m != nil {
		m.BatchLatency.Observe(d.Seconds())
	}
}
