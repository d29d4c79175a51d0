package measurement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a measurement does not exist.
var ErrNotFound = errors.New("measurement not found")

// ErrDuplicateExternalID is returned when a (source, external_id) pair has
// already been ingested.
var ErrDuplicateExternalID = errors.New("measurement already ingested for source and external id")

type Repository interface {
	Create(ctx context.Context, m *Measurement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Measurement, error)
	GetBySourceExternalID(ctx context.Context, source, externalID string) (*Measurement, error)
	// ListByPatient returns measurements for a patient, newest first. An empty
	// typ matches all types; a zero since applies no cutoff.
	ListByPatient(ctx context.Context, patientID uuid.UUID, typ string, since time.Time, limit, offset int) ([]*Measurement, int, error)
	// Window returns measurements of one type taken at or after the cutoff,
	// ordered by taken_at ascending. Used for rule evaluation windows.
	Window(ctx context.Context, patientID uuid.UUID, typ string, since time.Time) ([]*Measurement, error)
}
