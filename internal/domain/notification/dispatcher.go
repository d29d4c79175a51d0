package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renalwatch/renalwatch/internal/domain/alert"
	"github.com/renalwatch/renalwatch/internal/domain/clinician"
	"github.com/renalwatch/renalwatch/internal/platform/mail"
	"github.com/renalwatch/renalwatch/internal/platform/metrics"
)

// Directory resolves the clinicians responsible for a patient.
type Directory interface {
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*clinician.Clinician, error)
}

// Marker updates alert notification bookkeeping after an initial dispatch.
type Marker interface {
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Dispatcher fans alerts out to enrolled clinicians by email, gated by
// per-clinician preferences. Every attempt, including skips, lands in the
// notification log in send order.
type Dispatcher struct {
	repo        Repository
	directory   Directory
	sender      mail.Sender
	marker      Marker
	sendTimeout time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

func NewDispatcher(repo Repository, directory Directory, sender mail.Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		directory:   directory,
		sender:      sender,
		sendTimeout: 10 * time.Second,
		logger:      logger.With().Str("component", "dispatcher").Logger(),
		now:         time.Now,
	}
}

// SetMarker attaches the alert store hook that stamps last_notified_at after
// the initial dispatch. Optional; escalation re-dispatches stamp it through
// the escalation update itself.
func (d *Dispatcher) SetMarker(m Marker) {
	d.marker = m
}

// NotifyAlert resolves the responsible clinicians and dispatches. It never
// returns an error: notification failure must not disturb alert bookkeeping.
func (d *Dispatcher) NotifyAlert(ctx context.Context, a *alert.Alert) {
	clins, err := d.directory.ActiveForPatient(ctx, a.PatientID)
	if err != nil {
		d.logger.Error().Err(err).
			Str("alert_id", a.ID.String()).
			Msg("resolving enrolled clinicians failed, alert not dispatched")
		return
	}
	if len(clins) == 0 {
		d.logger.Warn().
			Str("alert_id", a.ID.String()).
			Str("patient_id", a.PatientID.String()).
			Msg("no enrolled clinicians for patient, alert not dispatched")
		return
	}

	logs := d.Dispatch(ctx, a, clins)

	if d.marker != nil && anySent(logs) && a.LastNotifiedAt == nil {
		if err := d.marker.MarkNotified(ctx, a.ID, d.now().UTC()); err != nil {
			d.logger.Error().Err(err).Str("alert_id", a.ID.String()).Msg("stamping last_notified_at failed")
		}
	}
}

// Dispatch attempts one notification per clinician and returns the logs in
// send order.
func (d *Dispatcher) Dispatch(ctx context.Context, a *alert.Alert, clins []*clinician.Clinician) []*Log {
	logs := make([]*Log, 0, len(clins))
	for _, c := range clins {
		l := d.dispatchOne(ctx, a, c)
		if err := d.repo.AppendLog(ctx, l); err != nil {
			// The audit trail must not silently lose rows.
			d.logger.Error().Err(err).
				Str("alert_id", a.ID.String()).
				Str("clinician_id", c.ID.String()).
				Msg("appending notification log failed")
		}
		metrics.NotificationsSent.WithLabelValues(l.Channel, l.Status).Inc()
		logs = append(logs, l)
	}
	return logs
}

func (d *Dispatcher) dispatchOne(ctx context.Context, a *alert.Alert, c *clinician.Clinician) *Log {
	l := &Log{
		AlertID:     a.ID,
		ClinicianID: c.ID,
		PatientID:   a.PatientID,
		Channel:     ChannelEmail,
		Recipient:   c.Email,
		Subject:     renderSubject(a),
		SentAt:      d.now().UTC(),
	}

	pref := d.preference(ctx, c.ID)
	if !pref.EmailEnabled || !pref.Wants(a.Severity) {
		l.Status = StatusSkipped
		return l
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	err := d.sender.Send(sendCtx, mail.Message{
		To:       c.Email,
		Subject:  l.Subject,
		Body:     renderBody(a),
		HTMLBody: renderHTMLBody(a),
	})
	if err != nil {
		l.Status = StatusFailed
		l.ErrorMessage = err.Error()
		d.logger.Error().Err(err).
			Str("alert_id", a.ID.String()).
			Str("recipient", c.Email).
			Msg("notification send failed")
		return l
	}
	l.Status = StatusSent
	return l
}

func (d *Dispatcher) preference(ctx context.Context, clinicianID uuid.UUID) *Preference {
	p, err := d.repo.GetPreference(ctx, clinicianID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			d.logger.Error().Err(err).
				Str("clinician_id", clinicianID.String()).
				Msg("loading notification preference failed, using defaults")
		}
		return DefaultPreference(clinicianID)
	}
	return p
}

func anySent(logs []*Log) bool {
	for _, l := range logs {
		if l.Status == StatusSent {
			return true
		}
	}
	return false
}
