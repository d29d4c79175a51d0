package checkin

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("checkin not found")

type Repository interface {
	Create(ctx context.Context, c *Checkin) error
	GetByID(ctx context.Context, id uuid.UUID) (*Checkin, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Checkin, int, error)
}
