package measurement

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	measurements map[uuid.UUID]*Measurement
}

func newMockRepo() *mockRepo {
	return &mockRepo{measurements: make(map[uuid.UUID]*Measurement)}
}

func (m *mockRepo) Create(_ context.Context, meas *Measurement) error {
	if meas.ExternalID != nil && *meas.ExternalID != "" {
		for _, existing := range m.measurements {
			if existing.Source == meas.Source && existing.ExternalID != nil && *existing.ExternalID == *meas.ExternalID {
				return ErrDuplicateExternalID
			}
		}
	}
	meas.ID = uuid.New()
	meas.CreatedAt = time.Now()
	m.measurements[meas.ID] = meas
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Measurement, error) {
	meas, ok := m.measurements[id]
	if !ok {
		return nil, ErrNotFound
	}
	return meas, nil
}

func (m *mockRepo) GetBySourceExternalID(_ context.Context, source, externalID string) (*Measurement, error) {
	for _, meas := range m.measurements {
		if meas.Source == source && meas.ExternalID != nil && *meas.ExternalID == externalID {
			return meas, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, typ string, since time.Time, limit, offset int) ([]*Measurement, int, error) {
	var result []*Measurement
	for _, meas := range m.measurements {
		if meas.PatientID != patientID {
			continue
		}
		if typ != "" && meas.Type != typ {
			continue
		}
		if !since.IsZero() && meas.TakenAt.Before(since) {
			continue
		}
		result = append(result, meas)
	}
	return result, len(result), nil
}

func (m *mockRepo) Window(_ context.Context, patientID uuid.UUID, typ string, since time.Time) ([]*Measurement, error) {
	var result []*Measurement
	for _, meas := range m.measurements {
		if meas.PatientID == patientID && meas.Type == typ && !meas.TakenAt.Before(since) {
			result = append(result, meas)
		}
	}
	return result, nil
}

type recordingEvaluator struct {
	seen []*Measurement
}

func (r *recordingEvaluator) EvaluateMeasurement(_ context.Context, m *Measurement) {
	r.seen = append(r.seen, m)
}

// -- Tests --

func TestRecordMeasurement(t *testing.T) {
	svc := NewService(newMockRepo())
	ev := &recordingEvaluator{}
	svc.SetEvaluator(ev)

	m := &Measurement{
		PatientID: uuid.New(),
		Type:      TypeWeight,
		Value:     71.2,
	}
	stored, created, err := svc.Record(context.Background(), m)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !created {
		t.Error("expected created=true for new measurement")
	}
	if stored.Unit != "kg" {
		t.Errorf("unit = %q, want kg", stored.Unit)
	}
	if stored.Source != SourceManual {
		t.Errorf("source = %q, want manual default", stored.Source)
	}
	if stored.TakenAt.IsZero() {
		t.Error("taken_at not defaulted")
	}
	if len(ev.seen) != 1 {
		t.Errorf("evaluator invoked %d times, want 1", len(ev.seen))
	}
}

func TestRecordRejectsInvalid(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name string
		m    Measurement
	}{
		{"missing patient", Measurement{Type: TypeWeight, Value: 70}},
		{"unknown type", Measurement{PatientID: uuid.New(), Type: "TEMPERATURE", Value: 37}},
		{"unknown source", Measurement{PatientID: uuid.New(), Type: TypeWeight, Value: 70, Source: "garmin"}},
		{"unsupported unit", Measurement{PatientID: uuid.New(), Type: TypeSpO2, Value: 95, Unit: "mmHg"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Record(context.Background(), &tc.m); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRecordConvertsPounds(t *testing.T) {
	svc := NewService(newMockRepo())

	m := &Measurement{PatientID: uuid.New(), Type: TypeWeight, Value: 154.32, Unit: "lb"}
	stored, _, err := svc.Record(context.Background(), m)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if math.Abs(stored.Value-70.0) > 0.01 {
		t.Errorf("value = %.3f kg, want ~70.0", stored.Value)
	}
	if stored.Unit != "kg" {
		t.Errorf("unit = %q, want kg", stored.Unit)
	}
}

func TestRecordDuplicateExternalID(t *testing.T) {
	svc := NewService(newMockRepo())
	ev := &recordingEvaluator{}
	svc.SetEvaluator(ev)

	patientID := uuid.New()
	ext := "withings-12345"
	first := &Measurement{PatientID: patientID, Type: TypeWeight, Value: 70, Source: SourceWithings, ExternalID: &ext}
	stored1, created, err := svc.Record(context.Background(), first)
	if err != nil || !created {
		t.Fatalf("first Record: created=%v err=%v", created, err)
	}

	ext2 := "withings-12345"
	second := &Measurement{PatientID: patientID, Type: TypeWeight, Value: 70, Source: SourceWithings, ExternalID: &ext2}
	stored2, created, err := svc.Record(context.Background(), second)
	if err != nil {
		t.Fatalf("duplicate Record: %v", err)
	}
	if created {
		t.Error("duplicate ingestion reported as created")
	}
	if stored2.ID != stored1.ID {
		t.Error("duplicate ingestion did not return the existing row")
	}
	if len(ev.seen) != 1 {
		t.Errorf("evaluator invoked %d times, want 1 (duplicates are not re-evaluated)", len(ev.seen))
	}
}

func TestRecordDuplicateRace(t *testing.T) {
	// A racing insert makes Create fail with the unique-index error even
	// though the pre-insert lookup saw nothing.
	repo := newMockRepo()
	svc := NewService(repo)

	ext := "fitbit-9"
	existing := &Measurement{PatientID: uuid.New(), Type: TypeHeartRate, Value: 80, Unit: "bpm", Source: SourceFitbit, ExternalID: &ext, TakenAt: time.Now()}
	if err := repo.Create(context.Background(), existing); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	dup := &Measurement{PatientID: existing.PatientID, Type: TypeHeartRate, Value: 80, Source: SourceFitbit, ExternalID: &ext}
	stored, created, err := svc.Record(context.Background(), dup)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if created || stored.ID != existing.ID {
		t.Errorf("race not settled to existing row: created=%v", created)
	}
}

func TestListByPatientValidatesType(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, _, err := svc.ListByPatient(context.Background(), uuid.New(), "NOPE", time.Time{}, 10, 0); err == nil {
		t.Error("expected error for unknown type filter")
	}
}

func TestRecordWithoutEvaluator(t *testing.T) {
	svc := NewService(newMockRepo())
	m := &Measurement{PatientID: uuid.New(), Type: TypeSpO2, Value: 97}
	if _, _, err := svc.Record(context.Background(), m); err != nil {
		t.Fatalf("Record without evaluator: %v", err)
	}
}
