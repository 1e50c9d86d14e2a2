package request

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the HTTP surface instrumentation. A nil *Metrics records nothing.
type Metrics struct {
	inFlight prometheus.Gauge
	latency  *prometheus.HistogramVec
}

// NewMetrics registers with the default registry; call it once per process.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "idm_http_requests_in_flight",
			Help: "Requests currently being served",
		}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idm_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finished(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.latency.WithLabelValues(method, route, status).Observe(d.Seconds())
}
