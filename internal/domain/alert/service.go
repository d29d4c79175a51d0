package alert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service owns the clinician-facing alert state machine:
// OPEN -> ACKNOWLEDGED and OPEN -> DISMISSED, both terminal. A fresh rule
// trigger opens a new alert row; nothing ever reopens.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Alert, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Acknowledge transitions an OPEN alert to ACKNOWLEDGED. Re-acknowledging an
// already-ACKNOWLEDGED alert is an idempotent no-op; acknowledging a DISMISSED
// alert is ErrStateConflict.
func (s *Service) Acknowledge(ctx context.Context, id, clinicianID uuid.UUID) (*Alert, error) {
	err := s.repo.Acknowledge(ctx, id, clinicianID, s.now().UTC())
	if err != nil && !errors.Is(err, ErrStateConflict) {
		return nil, err
	}
	a, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if err == nil {
		return a, nil
	}
	if a.Status == StatusAcknowledged {
		return a, nil
	}
	return nil, ErrStateConflict
}

// Dismiss transitions an OPEN alert to DISMISSED. The (patient, rule)
// suppression slot frees immediately: the next breaching reading opens a fresh
// alert. Re-dismissing is an idempotent no-op; dismissing an ACKNOWLEDGED
// alert is ErrStateConflict.
func (s *Service) Dismiss(ctx context.Context, id, clinicianID uuid.UUID) (*Alert, error) {
	err := s.repo.Dismiss(ctx, id, clinicianID, s.now().UTC())
	if err != nil && !errors.Is(err, ErrStateConflict) {
		return nil, err
	}
	a, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if err == nil {
		return a, nil
	}
	if a.Status == StatusDismissed {
		return a, nil
	}
	return nil, ErrStateConflict
}
