package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for credential reset flows.
type Metrics struct {
	Outcomes  *prometheus.CounterVec
	Advances  *prometheus.CounterVec
	CodesSent *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_credreset_outcomes_total",
			Help: "Reset sessions by terminal outcome",
		}, []string{"outcome"}),
		Advances: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_credreset_step_advances_total",
			Help: "Successful step transitions by the step reached",
		}, []string{"step"}),
		CodesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_credreset_codes_sent_total",
			Help: "Confirmation codes sent by channel and result",
		}, []string{"channel", "result"}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncAdvance(step string) {
	if m == nil {
		return
	}
	m.Advances.WithLabelValues(step).Inc()
}

func (m *Metrics) IncCodeSent(channel, result string) {
	if m == nil {
		return
	}
	m.CodesSent.WithLabelValues(channel, result).Inc()
}
