package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audits module.
type Metrics struct {
	// Audit outcomes by verdict and policy
	AuditOutcome *prometheus.CounterVec

	// Overall audit latency including record and policy resolution
	AuditLatency prometheus.Histogram

	// Session terminal states
	SessionOutcome *prometheus.CounterVec

	// Result log append failures
	LogAppendFailures prometheus.Counter
}

// New creates a Metrics instance with all audits module metrics registered.
func New() *Metrics {
	return &Metrics{
		AuditOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attesta_audit_outcomes_total",
			Help: "Total audit outcomes by verdict and policy",
		}, []string{"verdict", "policy"}), // verdict: "compliant", "non_compliant", "not_found"

		AuditLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attesta_audit_duration_seconds",
			Help:    "Duration of one full audit including data access",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		SessionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attesta_session_outcomes_total",
			Help: "Total audit sessions reaching a terminal state",
		}, []string{"status"}),

		LogAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesta_result_log_append_failures_total",
			Help: "Total failures appending to the audit result log",
		}),
	}
}

// IncrementOutcome records an audit verdict.
func (m *Metrics) IncrementOutcome(verdict, policy string) {
	if m != nil {
		m.AuditOutcome.WithLabelValues(verdict, policy).Inc()
	}
}

// ObserveAuditLatency records the total audit duration.
func (m *Metrics) ObserveAuditLatency(d time.Duration) {
	if m != nil {
		m.AuditLatency.Observe(d.Seconds())
	}
}

// IncrementSessionOutcome records a terminal session state.
func (m *Metrics) IncrementSessionOutcome(status string) {
	if m != nil {
		m.SessionOutcome.WithLabelValues(status).Inc()
	}
}

// IncrementLogAppendFailure records a result log append failure.
func (m *Metrics) IncrementLogAppendFailure() {
	if m != nil {
		m.LogAppendFailures.Inc()
	}
}
