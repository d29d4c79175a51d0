package clinician

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	clinicians  map[uuid.UUID]*Clinician
	enrollments map[uuid.UUID]*Enrollment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		clinicians:  make(map[uuid.UUID]*Clinician),
		enrollments: make(map[uuid.UUID]*Enrollment),
	}
}

func (m *mockRepo) Create(_ context.Context, c *Clinician) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.clinicians[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinician, error) {
	c, ok := m.clinicians[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Clinician, int, error) {
	var result []*Clinician
	for _, c := range m.clinicians {
		result = append(result, c)
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateEnrollment(_ context.Context, e *Enrollment) error {
	e.ID = uuid.New()
	m.enrollments[e.ID] = e
	return nil
}

func (m *mockRepo) EndEnrollment(_ context.Context, id uuid.UUID) error {
	e, ok := m.enrollments[id]
	if !ok || e.Status != EnrollmentActive {
		return ErrNotFound
	}
	now := time.Now()
	e.Status = EnrollmentEnded
	e.EndedAt = &now
	return nil
}

func (m *mockRepo) ActiveForPatient(_ context.Context, patientID uuid.UUID) ([]*Clinician, error) {
	var result []*Clinician
	for _, e := range m.enrollments {
		if e.PatientID != patientID || e.Status != EnrollmentActive {
			continue
		}
		if c, ok := m.clinicians[e.ClinicianID]; ok && c.Active {
			result = append(result, c)
		}
	}
	return result, nil
}

func TestCreateClinician(t *testing.T) {
	svc := NewService(newMockRepo())

	c := &Clinician{Name: "Dr. Osei", Email: "osei@clinic.example"}
	if err := svc.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !c.Active {
		t.Error("new clinician should be active")
	}

	if err := svc.Create(context.Background(), &Clinician{Name: "No Email"}); err == nil {
		t.Error("expected error for missing email")
	}
	if err := svc.Create(context.Background(), &Clinician{Email: "x@y.z"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestEnrollmentFanOut(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	active := &Clinician{Name: "Dr. A", Email: "a@c.example"}
	ended := &Clinician{Name: "Dr. B", Email: "b@c.example"}
	if err := svc.Create(ctx, active); err != nil {
		t.Fatal(err)
	}
	if err := svc.Create(ctx, ended); err != nil {
		t.Fatal(err)
	}

	patientID := uuid.New()
	e1 := &Enrollment{ClinicianID: active.ID, PatientID: patientID}
	e2 := &Enrollment{ClinicianID: ended.ID, PatientID: patientID}
	if err := svc.Enroll(ctx, e1); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := svc.Enroll(ctx, e2); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := svc.EndEnrollment(ctx, e2.ID); err != nil {
		t.Fatalf("EndEnrollment: %v", err)
	}

	clins, err := svc.ActiveForPatient(ctx, patientID)
	if err != nil {
		t.Fatalf("ActiveForPatient: %v", err)
	}
	if len(clins) != 1 || clins[0].ID != active.ID {
		t.Errorf("fan-out = %d clinicians, want only the active enrollment", len(clins))
	}
}

func TestEnrollUnknownClinician(t *testing.T) {
	svc := NewService(newMockRepo())
	e := &Enrollment{ClinicianID: uuid.New(), PatientID: uuid.New()}
	if err := svc.Enroll(context.Background(), e); err == nil {
		t.Error("expected error enrolling unknown clinician")
	}
}

func TestEndEnrollmentTwice(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	c := &Clinician{Name: "Dr. C", Email: "c@c.example"}
	if err := svc.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	e := &Enrollment{ClinicianID: c.ID, PatientID: uuid.New()}
	if err := svc.Enroll(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := svc.EndEnrollment(ctx, e.ID); err != nil {
		t.Fatalf("first end: %v", err)
	}
	if err := svc.EndEnrollment(ctx, e.ID); err == nil {
		t.Error("ending an already-ended enrollment should fail")
	}
}
