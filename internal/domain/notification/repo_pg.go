package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renalwatch/renalwatch/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) GetPreference(ctx context.Context, clinicianID uuid.UUID) (*Preference, error) {
	var p Preference
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT clinician_id, email_enabled, notify_on_critical, notify_on_warning, notify_on_info, updated_at
		FROM notification_preference WHERE clinician_id = $1`, clinicianID,
	).Scan(&p.ClinicianID, &p.EmailEnabled, &p.NotifyOnCritical, &p.NotifyOnWarning, &p.NotifyOnInfo, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) SavePreference(ctx context.Context, p *Preference) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification_preference (clinician_id, email_enabled, notify_on_critical, notify_on_warning, notify_on_info, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (clinician_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			notify_on_critical = EXCLUDED.notify_on_critical,
			notify_on_warning = EXCLUDED.notify_on_warning,
			notify_on_info = EXCLUDED.notify_on_info,
			updated_at = NOW()`,
		p.ClinicianID, p.EmailEnabled, p.NotifyOnCritical, p.NotifyOnWarning, p.NotifyOnInfo,
	)
	return err
}

const logCols = `id, alert_id, clinician_id, patient_id, channel, status, recipient, subject, error_message, sent_at`

func (r *repoPG) AppendLog(ctx context.Context, l *Log) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification_log (id, alert_id, clinician_id, patient_id, channel, status, recipient, subject, error_message, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		l.ID, l.AlertID, l.ClinicianID, l.PatientID, l.Channel, l.Status, l.Recipient, l.Subject, nullable(l.ErrorMessage), l.SentAt,
	)
	return err
}

func (r *repoPG) ListLogsByAlert(ctx context.Context, alertID uuid.UUID) ([]*Log, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM notification_log WHERE alert_id = $1 ORDER BY sent_at ASC`, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLogs(rows)
}

func (r *repoPG) ListLogsByClinician(ctx context.Context, clinicianID uuid.UUID, limit, offset int) ([]*Log, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_log WHERE clinician_id = $1`, clinicianID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM notification_log WHERE clinician_id = $1 ORDER BY sent_at DESC LIMIT $2 OFFSET $3`,
		clinicianID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	logs, err := collectLogs(rows)
	return logs, total, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func collectLogs(rows pgx.Rows) ([]*Log, error) {
	var logs []*Log
	for rows.Next() {
		var l Log
		var errMsg *string
		if err := rows.Scan(&l.ID, &l.AlertID, &l.ClinicianID, &l.PatientID, &l.Channel, &l.Status,
			&l.Recipient, &l.Subject, &errMsg, &l.SentAt); err != nil {
			return nil, err
		}
		if errMsg != nil {
			l.ErrorMessage = *errMsg
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
