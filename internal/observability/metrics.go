package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "narrative",
			Subsystem: "session",
			Name:      "active",
			Help:      "Page sessions currently hosted.",
		},
	)
	activations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrative",
			Subsystem: "experience",
			Name:      "activations_total",
			Help:      "Experience activations by name.",
		},
		[]string{"experience"},
	)
	closes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrative",
			Subsystem: "experience",
			Name:      "closes_total",
			Help:      "Experience closes by name and reason.",
		},
		[]string{"experience", "reason"},
	)
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrative",
			Subsystem: "phase",
			Name:      "transitions_total",
			Help:      "Phase transitions by experience and cause.",
		},
		[]string{"experience", "cause"},
	)
	triggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrative",
			Subsystem: "input",
			Name:      "triggers_total",
			Help:      "Secret triggers fired.",
		},
		[]string{"kind", "name"},
	)
	dismissals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrative",
			Subsystem: "overlay",
			Name:      "dismissals_total",
			Help:      "Overlays auto-dismissed by scroll visibility.",
		},
		[]string{"experience", "mode"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sessionsActive, activations, closes, transitions, triggers, dismissals)
	})
}

func SessionOpened() {
	RegisterMetrics()
	sessionsActive.Inc()
}

func SessionClosed() {
	RegisterMetrics()
	sessionsActive.Dec()
}

func RecordActivation(experience string) {
	RegisterMetrics()
	activations.WithLabelValues(experience).Inc()
}

func RecordClose(experience, reason string) {
	RegisterMetrics()
	closes.WithLabelValues(experience, reason).Inc()
}

func RecordTransition(experience, cause string) {
	RegisterMetrics()
	transitions.WithLabelValues(experience, cause).Inc()
}

func RecordTrigger(kind, name string) {
	RegisterMetrics()
	triggers.WithLabelValues(kind, name).Inc()
}

func RecordDismissal(experience, mode string) {
	RegisterMetrics()
	dismissals.WithLabelValues(experience, mode).Inc()
}
