package measurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/renalwatch/renalwatch/internal/platform/metrics"
)

// Evaluator is notified after a measurement is accepted. Implementations must
// not fail ingestion: evaluation errors are contained on their side.
type Evaluator interface {
	EvaluateMeasurement(ctx context.Context, m *Measurement)
}

type Service struct {
	repo Repository
	ev   Evaluator
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetEvaluator attaches the alert evaluator invoked after each accepted
// measurement. Optional; without it ingestion still persists data.
func (s *Service) SetEvaluator(ev Evaluator) {
	s.ev = ev
}

// Record persists a measurement and triggers rule evaluation. Returns the
// stored measurement and whether it was newly created: a duplicate
// (source, external_id) pair returns the existing row and false, and is not
// re-evaluated.
func (s *Service) Record(ctx context.Context, m *Measurement) (*Measurement, bool, error) {
	if m.PatientID == uuid.Nil {
		return nil, false, fmt.Errorf("patient_id is required")
	}
	if !ValidType(m.Type) {
		return nil, false, fmt.Errorf("invalid measurement type: %s", m.Type)
	}
	if m.Source == "" {
		m.Source = SourceManual
	}
	if !validSources[m.Source] {
		return nil, false, fmt.Errorf("invalid source: %s", m.Source)
	}
	if m.TakenAt.IsZero() {
		m.TakenAt = s.now().UTC()
	}
	if err := s.normalizeUnit(m); err != nil {
		return nil, false, err
	}

	if m.ExternalID != nil && *m.ExternalID != "" {
		if existing, err := s.repo.GetBySourceExternalID(ctx, m.Source, *m.ExternalID); err == nil {
			return existing, false, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	if err := s.repo.Create(ctx, m); err != nil {
		// A concurrent sync of the same external id can land between the
		// lookup and the insert; the unique index settles the race.
		if errors.Is(err, ErrDuplicateExternalID) && m.ExternalID != nil {
			existing, getErr := s.repo.GetBySourceExternalID(ctx, m.Source, *m.ExternalID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	metrics.MeasurementsIngested.WithLabelValues(m.Type).Inc()

	if s.ev != nil {
		s.ev.EvaluateMeasurement(ctx, m)
	}
	return m, true, nil
}

// normalizeUnit converts the value to the canonical unit for its type.
func (s *Service) normalizeUnit(m *Measurement) error {
	canonical := CanonicalUnit(m.Type)
	if m.Unit == "" || m.Unit == canonical {
		m.Unit = canonical
		return nil
	}
	if m.Type == TypeWeight && (m.Unit == "lb" || m.Unit == "lbs") {
		m.Value = m.Value * 0.45359237
		m.Unit = canonical
		return nil
	}
	return fmt.Errorf("unsupported unit %q for type %s", m.Unit, m.Type)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Measurement, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, typ string, since time.Time, limit, offset int) ([]*Measurement, int, error) {
	if typ != "" && !ValidType(typ) {
		return nil, 0, fmt.Errorf("invalid measurement type: %s", typ)
	}
	return s.repo.ListByPatient(ctx, patientID, typ, since, limit, offset)
}
