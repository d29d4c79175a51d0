package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renalwatch/renalwatch/internal/domain/measurement"
	"github.com/renalwatch/renalwatch/internal/platform/metrics"
)

// Notifier fans an alert out to the responsible clinicians. Implementations
// contain their own failures: notification problems never propagate back into
// alert bookkeeping.
type Notifier interface {
	NotifyAlert(ctx context.Context, a *Alert)
}

// HistorySource supplies the trailing data window a rule needs.
type HistorySource interface {
	Window(ctx context.Context, patientID uuid.UUID, typ string, since time.Time) ([]*measurement.Measurement, error)
}

// Evaluator runs the rule catalog against incoming measurements and opens
// alerts for newly satisfied trigger conditions.
type Evaluator struct {
	rules    []Rule
	history  HistorySource
	alerts   Repository
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewEvaluator(rules []Rule, history HistorySource, alerts Repository, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		rules:   rules,
		history: history,
		alerts:  alerts,
		logger:  logger.With().Str("component", "evaluator").Logger(),
		now:     time.Now,
	}
}

// SetNotifier attaches the dispatcher invoked when an alert opens. Optional.
func (e *Evaluator) SetNotifier(n Notifier) {
	e.notifier = n
}

// Evaluate runs every rule applicable to the measurement's type and returns
// the first alert it opened, or nil when nothing fired. A rule that errors is
// logged and skipped without affecting the other rules. An already-OPEN alert
// for the same (patient, rule) suppresses a new one.
func (e *Evaluator) Evaluate(ctx context.Context, m *measurement.Measurement) (*Alert, error) {
	var created *Alert

	for _, rule := range e.rules {
		if rule.MeasurementType != m.Type {
			continue
		}

		trigger, err := e.runRule(ctx, rule, m)
		if err != nil {
			metrics.RuleEvalFailures.WithLabelValues(rule.ID).Inc()
			e.logger.Error().Err(err).
				Str("rule_id", rule.ID).
				Str("patient_id", m.PatientID.String()).
				Msg("rule evaluation failed, skipping rule")
			continue
		}
		if trigger == nil {
			continue
		}

		a, err := e.openAlert(ctx, rule, m, trigger)
		if err != nil {
			if errors.Is(err, ErrDuplicateOpen) {
				metrics.AlertsSuppressed.WithLabelValues(rule.ID).Inc()
				e.logger.Debug().
					Str("rule_id", rule.ID).
					Str("patient_id", m.PatientID.String()).
					Msg("duplicate alert suppressed")
				continue
			}
			return created, err
		}

		metrics.AlertsFired.WithLabelValues(rule.ID, a.Severity).Inc()
		e.logger.Info().
			Str("alert_id", a.ID.String()).
			Str("rule_id", rule.ID).
			Str("severity", a.Severity).
			Str("patient_id", m.PatientID.String()).
			Msg("alert opened")

		if e.notifier != nil {
			e.notifier.NotifyAlert(ctx, a)
		}
		if created == nil {
			created = a
		}
	}
	return created, nil
}

// EvaluateMeasurement is the ingestion hook. Evaluation problems are contained
// here: ingestion of valid data always succeeds even if alerting degrades.
func (e *Evaluator) EvaluateMeasurement(ctx context.Context, m *measurement.Measurement) {
	if _, err := e.Evaluate(ctx, m); err != nil {
		e.logger.Error().Err(err).
			Str("patient_id", m.PatientID.String()).
			Str("type", m.Type).
			Msg("alert evaluation degraded")
	}
}

// runRule evaluates one rule with its history window, containing panics from
// malformed history.
func (e *Evaluator) runRule(ctx context.Context, rule Rule, m *measurement.Measurement) (trigger *Trigger, err error) {
	defer func() {
		if r := recover(); r != nil {
			trigger = nil
			err = fmt.Errorf("rule %s panicked: %v", rule.ID, r)
		}
	}()

	var history []*measurement.Measurement
	if rule.Window > 0 {
		history, err = e.history.Window(ctx, m.PatientID, rule.MeasurementType, m.TakenAt.Add(-rule.Window))
		if err != nil {
			return nil, fmt.Errorf("loading %s window: %w", rule.ID, err)
		}
	}
	return rule.Evaluate(m, history)
}

// openAlert creates the OPEN alert unless one already exists for the same
// (patient, rule). The pre-check keeps the common duplicate path cheap; the
// partial unique index settles true races at insert time.
func (e *Evaluator) openAlert(ctx context.Context, rule Rule, m *measurement.Measurement, trigger *Trigger) (*Alert, error) {
	existing, err := e.alerts.GetOpenByPatientRule(ctx, m.PatientID, rule.ID)
	if err == nil && existing != nil {
		return nil, ErrDuplicateOpen
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	a := &Alert{
		PatientID:       m.PatientID,
		RuleID:          rule.ID,
		RuleName:        rule.Name,
		Severity:        trigger.Severity,
		Status:          StatusOpen,
		TriggeredAt:     e.now().UTC(),
		Inputs:          trigger.Inputs,
		SummaryText:     trigger.Summary,
		EscalationLevel: 0,
	}
	if err := e.alerts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
