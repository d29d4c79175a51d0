package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

// mockRepo mirrors the database CAS semantics: status guards on acknowledge,
// dismiss and escalate, and the no-duplicate-OPEN constraint on create.
type mockRepo struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*Alert
}

func newMockRepo() *mockRepo {
	return &mockRepo{alerts: make(map[uuid.UUID]*Alert)}
}

func (m *mockRepo) Create(_ context.Context, a *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.alerts {
		if existing.PatientID == a.PatientID && existing.RuleID == a.RuleID && existing.Status == StatusOpen {
			return ErrDuplicateOpen
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	copied := *a
	m.alerts[a.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) GetOpenByPatientRule(_ context.Context, patientID uuid.UUID, ruleID string) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.PatientID == patientID && a.RuleID == ruleID && a.Status == StatusOpen {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Alert, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Alert
	for _, a := range m.alerts {
		if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		copied := *a
		result = append(result, &copied)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListOpen(_ context.Context) ([]*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Alert
	for _, a := range m.alerts {
		if a.Status == StatusOpen {
			copied := *a
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockRepo) Acknowledge(_ context.Context, id, clinicianID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok || a.Status != StatusOpen {
		return ErrStateConflict
	}
	a.Status = StatusAcknowledged
	a.AcknowledgedBy = &clinicianID
	a.AcknowledgedAt = &at
	return nil
}

func (m *mockRepo) Dismiss(_ context.Context, id, clinicianID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok || a.Status != StatusOpen {
		return ErrStateConflict
	}
	a.Status = StatusDismissed
	a.AcknowledgedBy = &clinicianID
	a.AcknowledgedAt = &at
	return nil
}

func (m *mockRepo) Escalate(_ context.Context, id uuid.UUID, fromLevel int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok || a.Status != StatusOpen || a.EscalationLevel != fromLevel {
		return ErrStateConflict
	}
	a.EscalationLevel++
	a.EscalatedAt = &at
	a.LastNotifiedAt = &at
	return nil
}

func (m *mockRepo) MarkNotified(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.alerts[id]; ok {
		a.LastNotifiedAt = &at
	}
	return nil
}

func seedOpenAlert(t *testing.T, repo *mockRepo, severity string) *Alert {
	t.Helper()
	a := &Alert{
		PatientID:   uuid.New(),
		RuleID:      RuleBPSystolicHigh,
		RuleName:    "Systolic blood pressure high",
		Severity:    severity,
		Status:      StatusOpen,
		TriggeredAt: time.Now().UTC(),
		Inputs:      ThresholdInputs{Measurement: ReadingValue{Value: 182}, Threshold: 180},
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seeding alert: %v", err)
	}
	return a
}

// -- Tests --

func TestAcknowledge(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	a := seedOpenAlert(t, repo, SeverityCritical)
	clin := uuid.New()

	got, err := svc.Acknowledge(context.Background(), a.ID, clin)
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if got.Status != StatusAcknowledged {
		t.Errorf("status = %s, want ACKNOWLEDGED", got.Status)
	}
	if got.AcknowledgedBy == nil || *got.AcknowledgedBy != clin {
		t.Error("acknowledged_by not recorded")
	}
	if got.AcknowledgedAt == nil {
		t.Error("acknowledged_at not recorded")
	}
}

func TestAcknowledgeIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	a := seedOpenAlert(t, repo, SeverityWarning)
	clin := uuid.New()

	first, err := svc.Acknowledge(context.Background(), a.ID, clin)
	if err != nil {
		t.Fatalf("first acknowledge: %v", err)
	}
	second, err := svc.Acknowledge(context.Background(), a.ID, uuid.New())
	if err != nil {
		t.Fatalf("re-acknowledge should be a no-op, got %v", err)
	}
	if !second.AcknowledgedAt.Equal(*first.AcknowledgedAt) {
		t.Error("re-acknowledge changed acknowledged_at")
	}
	if *second.AcknowledgedBy != clin {
		t.Error("re-acknowledge changed acknowledged_by")
	}
}

func TestAcknowledgeDismissedConflicts(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	a := seedOpenAlert(t, repo, SeverityWarning)

	if _, err := svc.Dismiss(context.Background(), a.ID, uuid.New()); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if _, err := svc.Acknowledge(context.Background(), a.ID, uuid.New()); err != ErrStateConflict {
		t.Errorf("acknowledging a dismissed alert: err = %v, want ErrStateConflict", err)
	}
}

func TestDismissIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	a := seedOpenAlert(t, repo, SeverityInfo)

	if _, err := svc.Dismiss(context.Background(), a.ID, uuid.New()); err != nil {
		t.Fatalf("first dismiss: %v", err)
	}
	if _, err := svc.Dismiss(context.Background(), a.ID, uuid.New()); err != nil {
		t.Errorf("re-dismiss should be a no-op, got %v", err)
	}
}

func TestAcknowledgeMissingAlert(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Acknowledge(context.Background(), uuid.New(), uuid.New()); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
