package alert

import (
	"time"

	"github.com/google/uuid"
)

// Severities.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Statuses. OPEN is the only mutable state: ACKNOWLEDGED and DISMISSED are
// terminal, a fresh rule trigger opens a new alert row instead of reopening.
const (
	StatusOpen         = "OPEN"
	StatusAcknowledged = "ACKNOWLEDGED"
	StatusDismissed    = "DISMISSED"
)

// Alert records that a rule's trigger condition was satisfied for a patient,
// carrying the literal inputs that caused it. Rows are never deleted.
type Alert struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	RuleID          string     `json:"rule_id"`
	RuleName        string     `json:"rule_name"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	TriggeredAt     time.Time  `json:"triggered_at"`
	Inputs          RuleInputs `json:"inputs"`
	SummaryText     string     `json:"summary_text,omitempty"`
	EscalationLevel int        `json:"escalation_level"`
	LastNotifiedAt  *time.Time `json:"last_notified_at,omitempty"`
	EscalatedAt     *time.Time `json:"escalated_at,omitempty"`
	AcknowledgedBy  *uuid.UUID `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Open reports whether the alert is still actionable.
func (a *Alert) Open() bool {
	return a.Status == StatusOpen
}
