package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsRecorded counts submitted attempts by outcome (passed/failed).
	AttemptsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_attempts_total",
			Help: "Total number of submitted quiz attempts",
		},
		[]string{"outcome"},
	)

	// CertificatesIssued counts stored certificates per course.
	CertificatesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_certificates_issued_total",
			Help: "Total number of course certificates issued",
		},
		[]string{"course"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_persistence_failures_total",
			Help: "History writes that failed after retries",
		},
		[]string{"op"},
	)

	RenderingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_rendering_failures_total",
			Help: "Certificate artifacts that could not be rendered",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_notification_failures_total",
			Help: "Certificate-earned notifications that could not be delivered",
		},
	)

	// ActiveSessions tracks sessions currently held in memory.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_active_sessions",
			Help: "Current number of assessment sessions",
		},
	)
)
