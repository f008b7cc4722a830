package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy module.
type Metrics struct {
	PoliciesCreated prometheus.Counter

	// Create rejections by reason: duplicate, invalid
	CreateRejected *prometheus.CounterVec

	// Cache lookups by result: hit, miss, error
	CacheRequests *prometheus.CounterVec
}

// New registers the policy metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PoliciesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mandate_policies_created_total",
			Help: "Total number of policies created",
		}),
		CreateRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_policy_create_rejected_total",
			Help: "Policy creations rejected, by reason",
		}, []string{"reason"}),
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_policy_cache_requests_total",
			Help: "Policy cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.PoliciesCreated.Inc()
	}
}

func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.CreateRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementCache(result string) {
	if m != nil {
		m.CacheRequests.WithLabelValues(result).Inc()
	}
}
