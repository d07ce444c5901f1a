package oauth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters published by orchestrators. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	FlowsStarted  *prometheus.CounterVec
	Callbacks     *prometheus.CounterVec
	Refreshes     *prometheus.CounterVec
	StatesSwept   prometheus.Counter
	Disconnects   *prometheus.CounterVec
	StatusChanges *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg. A nil registerer
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialflow",
			Subsystem: "oauth",
			Name:      "flows_started_total",
			Help:      "Authorization flows initiated.",
		}, []string{"platform"}),
		Callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialflow",
			Subsystem: "oauth",
			Name:      "callbacks_total",
			Help:      "Authorization callbacks handled, by outcome.",
		}, []string{"platform", "outcome"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialflow",
			Subsystem: "oauth",
			Name:      "refreshes_total",
			Help:      "Token refresh attempts, by outcome.",
		}, []string{"platform", "outcome"}),
		StatesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "socialflow",
			Subsystem: "oauth",
			Name:      "states_swept_total",
			Help:      "Expired authorization states deleted.",
		}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialflow",
			Subsystem: "oauth",
			Name:      "disconnects_total",
			Help:      "Accounts disconnected.",
		}, []string{"platform"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialflow",
			Subsystem: "oauth",
			Name:      "account_status_changes_total",
			Help:      "Account status transitions, by target status.",
		}, []string{"platform", "status"}),
	}

	if reg != nil {
		reg.MustRegister(m.FlowsStarted, m.Callbacks, m.Refreshes, m.StatesSwept, m.Disconnects, m.StatusChanges)
	}
	return m
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if kind := KindOf(err); kind != KindUnknown {
		return string(kind)
	}
	return "error"
}

func (m *Metrics) flowStarted(p Platform) {
	if m == nil {
		return
	}
	m.FlowsStarted.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) callback(p Platform, err error) {
	if m == nil {
		return
	}
	m.Callbacks.WithLabelValues(string(p), outcome(err)).Inc()
}

func (m *Metrics) refresh(p Platform, err error) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(string(p), outcome(err)).Inc()
}

func (m *Metrics) statesSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.StatesSwept.Add(float64(n))
}

func (m *Metrics) disconnected(p Platform) {
	if m == nil {
		return
	}
	m.Disconnects.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) statusChanged(p Platform, status AccountStatus) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(string(p), string(status)).Inc()
}
