package clinician

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("clinician not found")

type Repository interface {
	Create(ctx context.Context, c *Clinician) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error)
	List(ctx context.Context, limit, offset int) ([]*Clinician, int, error)

	CreateEnrollment(ctx context.Context, e *Enrollment) error
	EndEnrollment(ctx context.Context, id uuid.UUID) error
	// ActiveForPatient returns active clinicians with an active enrollment to
	// the patient. Drives notification fan-out and alert visibility.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*Clinician, error)
}
