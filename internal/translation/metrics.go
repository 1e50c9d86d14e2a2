package translation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RulesFired      *prometheus.CounterVec
	ConfigErrors    prometheus.Counter
	ConditionErrors prometheus.Counter
	Decisions       *prometheus.CounterVec
}

// NewMetrics registers with the default registry.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		RulesFired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_translation_rules_fired_total",
			Help: "Rules whose condition held, by action",
		}, []string{"action"}),
		ConfigErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "idm_translation_config_errors_total",
			Help: "Rules replaced by a blind stopper while compiling a profile",
		}),
		ConditionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "idm_translation_condition_errors_total",
			Help: "Rule conditions that failed at evaluation time",
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idm_translation_auto_decisions_total",
			Help: "Automatic processing decisions produced by profiles",
		}, []string{"decision"}),
	}
}

func (m *Metrics) incRuleFired(action string) {
	if m == nil {
		return
	}
	m.RulesFired.WithLabelValues(action).Inc()
}

func (m *Metrics) incConfigError() {
	if m == nil {
		return
	}
	m.ConfigErrors.Inc()
}

func (m *Metrics) incConditionError() {
	if m == nil {
		return
	}
	m.ConditionErrors.Inc()
}

func (m *Metrics) incDecision(decision AutomaticAction) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(string(decision)).Inc()
}
