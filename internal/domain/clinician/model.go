package clinician

import (
	"time"

	"github.com/google/uuid"
)

// Clinician is a care-team member who receives alerts.
type Clinician struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment statuses.
const (
	EnrollmentActive = "active"
	EnrollmentEnded  = "ended"
)

// Enrollment links a clinician to a patient. Only clinicians with an active
// enrollment see the patient's alerts and receive notifications.
type Enrollment struct {
	ID          uuid.UUID  `json:"id"`
	ClinicianID uuid.UUID  `json:"clinician_id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}
