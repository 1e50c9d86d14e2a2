package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for bulk processing.
type Metrics struct {
	Runs           *prometheus.CounterVec
	Entities       *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ScheduledRules prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_bulk_runs_total",
			Help: "Bulk rule executions by result",
		}, []string{"result"}),
		Entities: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_bulk_entities_total",
			Help: "Entities visited by bulk rules, by outcome",
		}, []string{"outcome"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idm_bulk_run_duration_seconds",
			Help:    "Duration of one bulk rule execution",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30, 120},
		}),
		ScheduledRules: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "idm_bulk_scheduled_rules",
			Help: "Rules currently deployed on a cron schedule",
		}),
	}
}

func (m *Metrics) IncRun(result string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
}

func (m *Metrics) AddEntities(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Entities.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) SetScheduled(n int) {
	if m == nil {
		return
	}
	m.ScheduledRules.Set(float64(n))
}
