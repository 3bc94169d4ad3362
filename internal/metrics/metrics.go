// Package metrics exposes Prometheus counters for navigation, submission and storage.
//
// All recording methods are safe on a nil *Metrics so components can run without a
// registry (tests, embedded use).
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "labnav"

// Metrics holds the client's Prometheus collectors.
type Metrics struct {
	navigationAttempts prometheus.Counter
	fallbackSteps      *prometheus.CounterVec
	escalations        prometheus.Counter
	arrivals           prometheus.Counter
	submissionAttempts prometheus.Counter
	submissionOutcomes *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
	notifications      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		navigationAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_attempts_total",
			Help:      "Activity navigations started.",
		}),
		fallbackSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_fallback_steps_total",
			Help:      "Fallback ladder steps executed, by step.",
		}, []string{"step"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_escalations_total",
			Help:      "Navigations that exhausted the fallback ladder.",
		}),
		arrivals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_arrivals_total",
			Help:      "Navigations confirmed on the next page load.",
		}),
		submissionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_attempts_total",
			Help:      "Submission network attempts, including retries.",
		}),
		submissionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_outcomes_total",
			Help:      "Final submission outcomes, by kind.",
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Best-effort persistence failures, by tier and operation.",
		}, []string{"tier", "op"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User notifications raised, by severity.",
		}, []string{"severity"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.navigationAttempts,
			m.fallbackSteps,
			m.escalations,
			m.arrivals,
			m.submissionAttempts,
			m.submissionOutcomes,
			m.storeErrors,
			m.notifications,
		)
	}
	return m
}

func (m *Metrics) NavigationStarted() {
	if m != nil {
		m.navigationAttempts.Inc()
	}
}

func (m *Metrics) FallbackStep(step string) {
	if m != nil {
		m.fallbackSteps.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) Escalated() {
	if m != nil {
		m.escalations.Inc()
	}
}

func (m *Metrics) Arrived() {
	if m != nil {
		m.arrivals.Inc()
	}
}

func (m *Metrics) SubmissionAttempt() {
	if m != nil {
		m.submissionAttempts.Inc()
	}
}

func (m *Metrics) SubmissionOutcome(outcome string) {
	if m != nil {
		m.submissionOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) StoreError(tier, op string) {
	if m != nil {
		m.storeErrors.WithLabelValues(tier, op).Inc()
	}
}

func (m *Metrics) Notification(severity string) {
	if m != nil {
		m.notifications.WithLabelValues(severity).Inc()
	}
}
