package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeEnqueued  = "enqueued"
	OutcomeDropped   = "dropped"
	OutcomePersisted = "persisted"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

type Metrics struct {
	events     *prometheus.CounterVec
	queueDepth prometheus.Gauge
	persist    prometheus.Histogram
}

// New registers the audit publisher metrics. Call it once per process.
func New() *Metrics {
	return &Metrics{
		events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_audit_events_total",
			Help: "Audit events seen by the publisher, by outcome",
		}, []string{"outcome"}),
		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "idm_audit_queue_depth",
			Help: "Events waiting in the async audit buffer",
		}),
		persist: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idm_audit_persist_duration_seconds",
			Help:    "Time taken to append one event to the audit store",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) Count(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// ObservePersist records one store append.
func (m *Metrics) ObservePersist(seconds float64, err error) {
	if m == nil {
		return
	}
	m.persist.Observe(seconds)
	if err != nil {
		m.events.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	m.events.WithLabelValues(OutcomePersisted).Inc()
}
