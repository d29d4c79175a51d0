package alert

import (
	"context"
	"errors"
	"strconv"
	"time"

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

const alertCols = `id, patient_id, rule_id, rule_name, severity, status, triggered_at,
	inputs, summary_text, escalation_level, last_notified_at, escalated_at,
	acknowledged_by, acknowledged_at, created_at`

func (r *repoPG) Create(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	inputs, err := EncodeInputs(a.Inputs)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO alert (id, patient_id, rule_id, rule_name, severity, status,
			triggered_at, inputs, summary_text, escalation_level)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.PatientID, a.RuleID, a.RuleName, a.Severity, a.Status,
		a.TriggeredAt, inputs, nullableText(a.SummaryText), a.EscalationLevel,
	)
	if err != nil {
		// The partial unique index on (patient_id, rule_id) WHERE status='OPEN'
		// settles concurrent ingestion races.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOpen
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return scanAlert(r.conn(ctx).QueryRow(ctx,
		`SELECT `+alertCols+` FROM alert WHERE id = $1`, id))
}

func (r *repoPG) GetOpenByPatientRule(ctx context.Context, patientID uuid.UUID, ruleID string) (*Alert, error) {
	return scanAlert(r.conn(ctx).QueryRow(ctx,
		`SELECT `+alertCols+` FROM alert
		 WHERE patient_id = $1 AND rule_id = $2 AND status = 'OPEN'`, patientID, ruleID))
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Alert, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where += ` AND patient_id = $1`
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += ` AND status = $` + itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM alert `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+alertCols+` FROM alert `+where+
			` ORDER BY triggered_at DESC LIMIT $`+itoa(len(args)-1)+` OFFSET $`+itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	alerts, err := collectAlerts(rows)
	return alerts, total, err
}

func (r *repoPG) ListOpen(ctx context.Context) ([]*Alert, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+alertCols+` FROM alert WHERE status = 'OPEN' ORDER BY triggered_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

func (r *repoPG) Acknowledge(ctx context.Context, id, clinicianID uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE alert SET status = 'ACKNOWLEDGED', acknowledged_by = $2, acknowledged_at = $3
		WHERE id = $1 AND status = 'OPEN'`, id, clinicianID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

func (r *repoPG) Dismiss(ctx context.Context, id, clinicianID uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE alert SET status = 'DISMISSED', acknowledged_by = $2, acknowledged_at = $3
		WHERE id = $1 AND status = 'OPEN'`, id, clinicianID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

func (r *repoPG) Escalate(ctx context.Context, id uuid.UUID, fromLevel int, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE alert SET escalation_level = escalation_level + 1,
			escalated_at = $3, last_notified_at = $3
		WHERE id = $1 AND status = 'OPEN' AND escalation_level = $2`, id, fromLevel, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

func (r *repoPG) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE alert SET last_notified_at = $2 WHERE id = $1`, id, at)
	return err
}

func itoa(n int) string { return strconv.Itoa(n) }

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanAlert(row pgx.Row) (*Alert, error) {
	a, err := scanAlertFrom(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func collectAlerts(rows pgx.Rows) ([]*Alert, error) {
	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlertFrom(rows.Scan)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanAlertFrom(scan func(dest ...interface{}) error) (*Alert, error) {
	var a Alert
	var inputs []byte
	var summary *string
	err := scan(
		&a.ID, &a.PatientID, &a.RuleID, &a.RuleName, &a.Severity, &a.Status, &a.TriggeredAt,
		&inputs, &summary, &a.EscalationLevel, &a.LastNotifiedAt, &a.EscalatedAt,
		&a.AcknowledgedBy, &a.AcknowledgedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		a.SummaryText = *summary
	}
	a.Inputs, err = DecodeInputs(a.RuleID, inputs)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
