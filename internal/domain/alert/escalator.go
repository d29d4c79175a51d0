package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/renalwatch/renalwatch/internal/platform/metrics"
)

// EscalationPolicy maps (severity, escalation level) to the interval an OPEN
// alert may go unacknowledged before the next escalation. Levels beyond the
// configured slice reuse the last interval; intervals never decrease by level.
type EscalationPolicy struct {
	Critical []time.Duration
	Warning  []time.Duration
	Info     []time.Duration
}

func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{
		Critical: []time.Duration{15 * time.Minute, 30 * time.Minute},
		Warning:  []time.Duration{2 * time.Hour, 4 * time.Hour},
		Info:     []time.Duration{24 * time.Hour},
	}
}

// IntervalFor returns the wait before escalating past the given level.
func (p EscalationPolicy) IntervalFor(severity string, level int) time.Duration {
	var steps []time.Duration
	switch severity {
	case SeverityCritical:
		steps = p.Critical
	case SeverityWarning:
		steps = p.Warning
	default:
		steps = p.Info
	}
	if len(steps) == 0 {
		return 24 * time.Hour
	}
	if level >= len(steps) {
		return steps[len(steps)-1]
	}
	return steps[level]
}

// Escalator periodically sweeps OPEN alerts and raises their escalation level
// when they have gone unacknowledged past the policy interval, re-notifying
// on each bump. It is an explicitly owned, cancellable task.
type Escalator struct {
	alerts   Repository
	notifier Notifier
	policy   EscalationPolicy
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu sync.Mutex // single-flight tick guard
}

func NewEscalator(alerts Repository, policy EscalationPolicy, interval time.Duration, logger zerolog.Logger) *Escalator {
	return &Escalator{
		alerts:   alerts,
		policy:   policy,
		interval: interval,
		logger:   logger.With().Str("component", "escalator").Logger(),
		now:      time.Now,
	}
}

// SetNotifier attaches the dispatcher invoked on each escalation. Optional.
func (e *Escalator) SetNotifier(n Notifier) {
	e.notifier = n
}

// Start runs the escalation loop until ctx is cancelled.
func (e *Escalator) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info().Msg("escalation loop stopped")
				return
			case <-ticker.C:
				if err := e.RunEscalationTick(ctx); err != nil {
					e.logger.Error().Err(err).Msg("escalation tick failed")
				}
			}
		}
	}()
}

// RunEscalationTick performs one sweep over OPEN alerts. Single-flight: if a
// previous tick is still running the call returns immediately. Alerts
// acknowledged or dismissed between the scan and the update lose the CAS and
// are skipped without error.
func (e *Escalator) RunEscalationTick(ctx context.Context) error {
	if !e.mu.TryLock() {
		e.logger.Debug().Msg("previous escalation tick still running, skipping")
		return nil
	}
	defer e.mu.Unlock()

	started := e.now()
	defer func() {
		metrics.EscalationTickDuration.Observe(e.now().Sub(started).Seconds())
	}()

	open, err := e.alerts.ListOpen(ctx)
	if err != nil {
		return err
	}

	for _, a := range open {
		if !e.due(a) {
			continue
		}

		now := e.now().UTC()
		if err := e.alerts.Escalate(ctx, a.ID, a.EscalationLevel, now); err != nil {
			if errors.Is(err, ErrStateConflict) {
				// Concurrent acknowledge, dismiss or escalation won.
				e.logger.Debug().Str("alert_id", a.ID.String()).Msg("escalation lost race, skipping")
				continue
			}
			e.logger.Error().Err(err).Str("alert_id", a.ID.String()).Msg("escalation update failed")
			continue
		}

		a.EscalationLevel++
		a.EscalatedAt = &now
		a.LastNotifiedAt = &now
		metrics.Escalations.WithLabelValues(a.Severity).Inc()
		e.logger.Info().
			Str("alert_id", a.ID.String()).
			Str("severity", a.Severity).
			Int("escalation_level", a.EscalationLevel).
			Msg("alert escalated")

		if e.notifier != nil {
			e.notifier.NotifyAlert(ctx, a)
		}
	}
	return nil
}

// due reports whether the alert has waited past its current level's interval.
func (e *Escalator) due(a *Alert) bool {
	since := a.TriggeredAt
	if a.LastNotifiedAt != nil {
		since = *a.LastNotifiedAt
	}
	return e.now().Sub(since) >= e.policy.IntervalFor(a.Severity, a.EscalationLevel)
}
