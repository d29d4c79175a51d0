package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, c *Checkin) error {
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if len(c.Symptoms) == 0 && c.Notes == "" {
		return fmt.Errorf("checkin must report at least one symptom or a note")
	}
	for name, sym := range c.Symptoms {
		if sym.Severity < 1 || sym.Severity > 5 {
			return fmt.Errorf("symptom %q severity must be 1-5", name)
		}
	}
	if c.TakenAt.IsZero() {
		c.TakenAt = s.now().UTC()
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Checkin, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Checkin, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
