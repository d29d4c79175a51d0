package alert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an alert does not exist.
	ErrNotFound = errors.New("alert not found")
	// ErrDuplicateOpen is returned when an OPEN alert already exists for the
	// same (patient, rule). Deliberate no-op outcome, not a failure.
	ErrDuplicateOpen = errors.New("open alert already exists for patient and rule")
	// ErrStateConflict is returned when a mutation lost a race against a
	// concurrent state change.
	ErrStateConflict = errors.New("alert state changed concurrently")
)

// ListFilter narrows alert listings.
type ListFilter struct {
	PatientID uuid.UUID
	Status    string
}

type Repository interface {
	// Create inserts a new OPEN alert. Returns ErrDuplicateOpen when an OPEN
	// alert for the same (patient, rule) already exists.
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	GetOpenByPatientRule(ctx context.Context, patientID uuid.UUID, ruleID string) (*Alert, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Alert, int, error)
	// ListOpen returns every OPEN alert, oldest first. Escalation scan input.
	ListOpen(ctx context.Context) ([]*Alert, error)

	// Acknowledge and Dismiss apply only to OPEN alerts (compare-and-set on
	// status). Zero rows updated surfaces as ErrStateConflict; the caller
	// inspects the current state to distinguish no-op from conflict.
	Acknowledge(ctx context.Context, id, clinicianID uuid.UUID, at time.Time) error
	Dismiss(ctx context.Context, id, clinicianID uuid.UUID, at time.Time) error

	// Escalate bumps the escalation level by one iff the alert is still OPEN
	// and still at fromLevel. A lost race returns ErrStateConflict.
	Escalate(ctx context.Context, id uuid.UUID, fromLevel int, at time.Time) error

	// MarkNotified stamps last_notified_at after an initial dispatch.
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}
