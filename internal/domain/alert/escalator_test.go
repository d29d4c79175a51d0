package alert

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestEscalator(repo *mockRepo) (*Escalator, *recordingNotifier) {
	esc := NewEscalator(repo, DefaultEscalationPolicy(), time.Minute, zerolog.Nop())
	n := &recordingNotifier{}
	esc.SetNotifier(n)
	return esc, n
}

func TestEscalationTickEscalatesOverdueCritical(t *testing.T) {
	repo := newMockRepo()
	esc, notifier := newTestEscalator(repo)
	ctx := context.Background()

	a := seedOpenAlert(t, repo, SeverityCritical)

	// 20 minutes past trigger with a 15 minute level-0 interval.
	now := a.TriggeredAt.Add(20 * time.Minute)
	esc.now = func() time.Time { return now }

	if err := esc.RunEscalationTick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, _ := repo.GetByID(ctx, a.ID)
	if got.EscalationLevel != 1 {
		t.Fatalf("escalation_level = %d, want 1", got.EscalationLevel)
	}
	if got.EscalatedAt == nil || got.LastNotifiedAt == nil {
		t.Error("escalated_at / last_notified_at not stamped")
	}
	if notifier.count() != 1 {
		t.Errorf("notifier invoked %d times, want 1", notifier.count())
	}

	// Immediate second tick: the level-1 interval (30m) has not elapsed.
	if err := esc.RunEscalationTick(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	got, _ = repo.GetByID(ctx, a.ID)
	if got.EscalationLevel != 1 {
		t.Errorf("second tick escalated too early: level = %d", got.EscalationLevel)
	}
	if notifier.count() != 1 {
		t.Errorf("second tick sent a notification too early")
	}
}

func TestEscalationSkipsFreshAlerts(t *testing.T) {
	repo := newMockRepo()
	esc, notifier := newTestEscalator(repo)

	a := seedOpenAlert(t, repo, SeverityCritical)
	esc.now = func() time.Time { return a.TriggeredAt.Add(5 * time.Minute) }

	if err := esc.RunEscalationTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.EscalationLevel != 0 || notifier.count() != 0 {
		t.Error("alert escalated before its interval elapsed")
	}
}

func TestEscalationNeverTouchesResolvedAlerts(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	esc, notifier := newTestEscalator(repo)
	ctx := context.Background()

	acked := seedOpenAlert(t, repo, SeverityCritical)
	if _, err := svc.Acknowledge(ctx, acked.ID, acked.PatientID); err != nil {
		t.Fatal(err)
	}
	dismissed := seedOpenAlert(t, repo, SeverityWarning)
	if _, err := svc.Dismiss(ctx, dismissed.ID, dismissed.PatientID); err != nil {
		t.Fatal(err)
	}

	// Far in the future: elapsed time is irrelevant for resolved alerts.
	esc.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
	if err := esc.RunEscalationTick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	for _, id := range []struct{ a *Alert }{{acked}, {dismissed}} {
		got, _ := repo.GetByID(ctx, id.a.ID)
		if got.EscalationLevel != 0 {
			t.Errorf("resolved alert %s escalated to level %d", got.Status, got.EscalationLevel)
		}
	}
	if notifier.count() != 0 {
		t.Errorf("resolved alerts produced %d notifications", notifier.count())
	}
}

func TestEscalationUsesLastNotifiedAt(t *testing.T) {
	repo := newMockRepo()
	esc, _ := newTestEscalator(repo)
	ctx := context.Background()

	a := seedOpenAlert(t, repo, SeverityWarning)
	notified := a.TriggeredAt.Add(90 * time.Minute)
	if err := repo.MarkNotified(ctx, a.ID, notified); err != nil {
		t.Fatal(err)
	}

	// 2h after trigger but only 30m after the last notification: the 2h
	// warning interval counts from last_notified_at.
	esc.now = func() time.Time { return a.TriggeredAt.Add(2 * time.Hour) }
	if err := esc.RunEscalationTick(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByID(ctx, a.ID)
	if got.EscalationLevel != 0 {
		t.Error("escalated before the interval since last notification elapsed")
	}

	esc.now = func() time.Time { return notified.Add(2 * time.Hour) }
	if err := esc.RunEscalationTick(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetByID(ctx, a.ID)
	if got.EscalationLevel != 1 {
		t.Errorf("escalation_level = %d, want 1", got.EscalationLevel)
	}
}

func TestEscalationLostRaceIsSilent(t *testing.T) {
	// The CAS guard in the repo rejects an escalation whose level snapshot is
	// stale; the tick must treat that as a skip, not a failure.
	repo := newMockRepo()
	esc, _ := newTestEscalator(repo)
	ctx := context.Background()

	a := seedOpenAlert(t, repo, SeverityCritical)
	if err := repo.Escalate(ctx, a.ID, 0, a.TriggeredAt.Add(16*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if err := repo.Escalate(ctx, a.ID, 0, a.TriggeredAt.Add(17*time.Minute)); err != ErrStateConflict {
		t.Fatalf("stale escalate: err = %v, want ErrStateConflict", err)
	}

	esc.now = func() time.Time { return a.TriggeredAt.Add(17 * time.Minute) }
	if err := esc.RunEscalationTick(ctx); err != nil {
		t.Fatalf("tick must absorb lost races: %v", err)
	}
}

func TestIntervalForNeverDecreases(t *testing.T) {
	p := DefaultEscalationPolicy()
	for _, severity := range []string{SeverityCritical, SeverityWarning, SeverityInfo} {
		prev := time.Duration(0)
		for level := 0; level < 5; level++ {
			iv := p.IntervalFor(severity, level)
			if iv < prev {
				t.Errorf("%s level %d interval %v shrank below %v", severity, level, iv, prev)
			}
			prev = iv
		}
	}
}

func TestTickSingleFlight(t *testing.T) {
	repo := newMockRepo()
	esc, _ := newTestEscalator(repo)

	esc.mu.Lock()
	done := make(chan error, 1)
	go func() { done <- esc.RunEscalationTick(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("overlapping tick: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("overlapping tick blocked instead of returning")
	}
	esc.mu.Unlock()
}
