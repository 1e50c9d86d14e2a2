package credential

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts verification outcomes per credential type.
type Metrics struct {
	Verifications *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_credential_verifications_total",
			Help: "Local credential verifications by credential type and result",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) Observe(typeID string, result AuthenticationResult) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(typeID, string(result.Status)).Inc()
}
