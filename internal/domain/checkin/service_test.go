package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	checkins map[uuid.UUID]*Checkin
}

func newMockRepo() *mockRepo {
	return &mockRepo{checkins: make(map[uuid.UUID]*Checkin)}
}

func (m *mockRepo) Create(_ context.Context, c *Checkin) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.checkins[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Checkin, error) {
	c, ok := m.checkins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Checkin, int, error) {
	var result []*Checkin
	for _, c := range m.checkins {
		if c.PatientID == patientID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func TestCreateCheckin(t *testing.T) {
	svc := NewService(newMockRepo())

	ci := &Checkin{
		PatientID: uuid.New(),
		Symptoms: map[string]Symptom{
			"swelling": {Severity: 3, Location: "ankles"},
			"fatigue":  {Severity: 2},
		},
	}
	if err := svc.Create(context.Background(), ci); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ci.ID == uuid.Nil {
		t.Error("id not assigned")
	}
	if ci.TakenAt.IsZero() {
		t.Error("taken_at not defaulted")
	}
}

func TestCreateCheckinValidation(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name string
		ci   Checkin
	}{
		{"missing patient", Checkin{Symptoms: map[string]Symptom{"nausea": {Severity: 1}}}},
		{"empty report", Checkin{PatientID: uuid.New()}},
		{"severity too high", Checkin{PatientID: uuid.New(), Symptoms: map[string]Symptom{"nausea": {Severity: 9}}}},
		{"severity too low", Checkin{PatientID: uuid.New(), Symptoms: map[string]Symptom{"nausea": {Severity: 0}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Create(context.Background(), &tc.ci); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateCheckinNotesOnly(t *testing.T) {
	svc := NewService(newMockRepo())
	ci := &Checkin{PatientID: uuid.New(), Notes: "feeling generally unwell"}
	if err := svc.Create(context.Background(), ci); err != nil {
		t.Fatalf("Create notes-only checkin: %v", err)
	}
}
