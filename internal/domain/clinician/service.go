package clinician

import (
	"context"
	"fmt"
	"strings"
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

func (s *Service) Create(ctx context.Context, c *Clinician) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("valid email is required")
	}
	c.Active = true
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Clinician, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Enroll(ctx context.Context, e *Enrollment) error {
	if e.ClinicianID == uuid.Nil || e.PatientID == uuid.Nil {
		return fmt.Errorf("clinician_id and patient_id are required")
	}
	if _, err := s.repo.GetByID(ctx, e.ClinicianID); err != nil {
		return fmt.Errorf("enrolling: %w", err)
	}
	e.Status = EnrollmentActive
	if e.StartedAt.IsZero() {
		e.StartedAt = s.now().UTC()
	}
	return s.repo.CreateEnrollment(ctx, e)
}

func (s *Service) EndEnrollment(ctx context.Context, id uuid.UUID) error {
	return s.repo.EndEnrollment(ctx, id)
}

// ActiveForPatient returns the clinicians who should be notified about the
// patient's alerts.
func (s *Service) ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*Clinician, error) {
	return s.repo.ActiveForPatient(ctx, patientID)
}
