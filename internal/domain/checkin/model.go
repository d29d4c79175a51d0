package checkin

import (
	"time"

	"github.com/google/uuid"
)

// Symptom is one reported symptom with its patient-rated severity (1-5) and
// optional qualifiers.
type Symptom struct {
	Severity int      `json:"severity"`
	Location string   `json:"location,omitempty"`
	Flags    []string `json:"flags,omitempty"`
}

// Checkin is a patient-submitted symptom report. Immutable once created.
type Checkin struct {
	ID        uuid.UUID          `json:"id"`
	PatientID uuid.UUID          `json:"patient_id"`
	TakenAt   time.Time          `json:"taken_at"`
	Symptoms  map[string]Symptom `json:"symptoms"`
	Notes     string             `json:"notes,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}
