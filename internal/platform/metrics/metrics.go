package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsFired counts alerts created, labeled by rule and severity.
	AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renalwatch_alerts_fired_total",
		Help: "Number of alerts fired, by rule and severity.",
	}, []string{"rule", "severity"})

	// AlertsSuppressed counts evaluations that matched a rule but were
	// suppressed because an open alert for the same patient and rule exists.
	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renalwatch_alerts_suppressed_total",
		Help: "Number of duplicate alerts suppressed, by rule.",
	}, []string{"rule"})

	// RuleEvalFailures counts per-rule evaluation errors. Evaluation is
	// fail-open so these do not block other rules.
	RuleEvalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renalwatch_rule_eval_failures_total",
		Help: "Number of rule evaluation failures, by rule.",
	}, []string{"rule"})

	// NotificationsSent counts dispatch attempts by channel and outcome.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renalwatch_notifications_total",
		Help: "Number of notification dispatch attempts, by channel and status.",
	}, []string{"channel", "status"})

	// Escalations counts escalation level bumps performed by the scheduler.
	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renalwatch_escalations_total",
		Help: "Number of alert escalations, by severity.",
	}, []string{"severity"})

	// EscalationTickDuration observes how long a full scheduler sweep takes.
	EscalationTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "renalwatch_escalation_tick_seconds",
		Help:    "Duration of escalation scheduler sweeps.",
		Buckets: prometheus.DefBuckets,
	})

	// MeasurementsIngested counts accepted measurements by type.
	MeasurementsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renalwatch_measurements_ingested_total",
		Help: "Number of measurements ingested, by type.",
	}, []string{"type"})
)
