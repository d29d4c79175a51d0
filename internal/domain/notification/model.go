package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/renalwatch/renalwatch/internal/domain/alert"
)

// Channels.
const ChannelEmail = "email"

// Dispatch outcomes.
const (
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
)

// Preference controls which alerts reach a clinician and how. Missing rows
// resolve to DefaultPreference.
type Preference struct {
	ClinicianID      uuid.UUID `json:"clinician_id"`
	EmailEnabled     bool      `json:"email_enabled"`
	NotifyOnCritical bool      `json:"notify_on_critical"`
	NotifyOnWarning  bool      `json:"notify_on_warning"`
	NotifyOnInfo     bool      `json:"notify_on_info"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultPreference is applied to clinicians who never saved settings:
// email on, critical and warning on, info off.
func DefaultPreference(clinicianID uuid.UUID) *Preference {
	return &Preference{
		ClinicianID:      clinicianID,
		EmailEnabled:     true,
		NotifyOnCritical: true,
		NotifyOnWarning:  true,
		NotifyOnInfo:     false,
	}
}

// Wants reports whether the preference subscribes to the given severity.
func (p *Preference) Wants(severity string) bool {
	switch severity {
	case alert.SeverityCritical:
		return p.NotifyOnCritical
	case alert.SeverityWarning:
		return p.NotifyOnWarning
	case alert.SeverityInfo:
		return p.NotifyOnInfo
	}
	return false
}

// Log is one attempted notification. Append-only audit trail: one row per
// attempt including preference skips, never deduplicated.
type Log struct {
	ID           uuid.UUID `json:"id"`
	AlertID      uuid.UUID `json:"alert_id"`
	ClinicianID  uuid.UUID `json:"clinician_id"`
	PatientID    uuid.UUID `json:"patient_id"`
	Channel      string    `json:"channel"`
	Status       string    `json:"status"`
	Recipient    string    `json:"recipient"`
	Subject      string    `json:"subject"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}
