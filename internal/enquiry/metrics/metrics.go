package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for enquiry processing.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	AutoDecisions *prometheus.CounterVec
	AcceptLatency prometheus.Histogram
	Notifications *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_enquiry_decisions_total",
			Help: "Enquiry responses accepted, rejected or dropped",
		}, []string{"decision"}),
		AutoDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_enquiry_auto_decisions_total",
			Help: "Automatic processing outcomes",
		}, []string{"decision"}),
		AcceptLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idm_enquiry_accept_duration_seconds",
			Help:    "Time to accept a response and apply it to the entity",
			Buckets: prometheus.DefBuckets,
		}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_enquiry_notifications_total",
			Help: "Outbound notifications by kind and outcome",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) IncDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncAutoDecision(decision string) {
	if m == nil {
		return
	}
	m.AutoDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveAccept(seconds float64) {
	if m == nil {
		return
	}
	m.AcceptLatency.Observe(seconds)
}

func (m *Metrics) IncNotification(kind, result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind, result).Inc()
}
