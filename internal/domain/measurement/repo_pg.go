package measurement

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

const measCols = `id, patient_id, type, value, unit, taken_at, source, external_id, created_at`

func (r *repoPG) Create(ctx context.Context, m *Measurement) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO measurement (id, patient_id, type, value, unit, taken_at, source, external_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.PatientID, m.Type, m.Value, m.Unit, m.TakenAt, m.Source, m.ExternalID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateExternalID
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Measurement, error) {
	return scanMeas(r.conn(ctx).QueryRow(ctx,
		`SELECT `+measCols+` FROM measurement WHERE id = $1`, id))
}

func (r *repoPG) GetBySourceExternalID(ctx context.Context, source, externalID string) (*Measurement, error) {
	return scanMeas(r.conn(ctx).QueryRow(ctx,
		`SELECT `+measCols+` FROM measurement WHERE source = $1 AND external_id = $2`, source, externalID))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, typ string, since time.Time, limit, offset int) ([]*Measurement, int, error) {
	where := `WHERE patient_id = $1`
	args := []interface{}{patientID}
	if typ != "" {
		args = append(args, typ)
		where += ` AND type = $2`
	}
	if !since.IsZero() {
		args = append(args, since)
		where += ` AND taken_at >= $` + itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM measurement `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+measCols+` FROM measurement `+where+
			` ORDER BY taken_at DESC LIMIT $`+itoa(len(args)-1)+` OFFSET $`+itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var meas []*Measurement
	for rows.Next() {
		m, err := scanMeasRow(rows)
		if err != nil {
			return nil, 0, err
		}
		meas = append(meas, m)
	}
	return meas, total, rows.Err()
}

func (r *repoPG) Window(ctx context.Context, patientID uuid.UUID, typ string, since time.Time) ([]*Measurement, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+measCols+` FROM measurement
		WHERE patient_id = $1 AND type = $2 AND taken_at >= $3
		ORDER BY taken_at ASC`, patientID, typ, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meas []*Measurement
	for rows.Next() {
		m, err := scanMeasRow(rows)
		if err != nil {
			return nil, err
		}
		meas = append(meas, m)
	}
	return meas, rows.Err()
}

func itoa(n int) string { return strconv.Itoa(n) }

func scanMeas(row pgx.Row) (*Measurement, error) {
	var m Measurement
	err := row.Scan(&m.ID, &m.PatientID, &m.Type, &m.Value, &m.Unit, &m.TakenAt, &m.Source, &m.ExternalID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMeasRow(rows pgx.Rows) (*Measurement, error) {
	var m Measurement
	if err := rows.Scan(&m.ID, &m.PatientID, &m.Type, &m.Value, &m.Unit, &m.TakenAt, &m.Source, &m.ExternalID, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
