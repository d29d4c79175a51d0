package checkin

import (
	"context"
	"encoding/json"
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

func (r *repoPG) Create(ctx context.Context, c *Checkin) error {
	c.ID = uuid.New()
	symptoms, err := json.Marshal(c.Symptoms)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO symptom_checkin (id, patient_id, taken_at, symptoms, notes)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.PatientID, c.TakenAt, symptoms, c.Notes,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Checkin, error) {
	return scanCheckin(r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, taken_at, symptoms, notes, created_at
		FROM symptom_checkin WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Checkin, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM symptom_checkin WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, taken_at, symptoms, notes, created_at
		FROM symptom_checkin WHERE patient_id = $1
		ORDER BY taken_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var checkins []*Checkin
	for rows.Next() {
		c, err := scanCheckinRows(rows)
		if err != nil {
			return nil, 0, err
		}
		checkins = append(checkins, c)
	}
	return checkins, total, rows.Err()
}

func scanCheckin(row pgx.Row) (*Checkin, error) {
	var c Checkin
	var symptoms []byte
	err := row.Scan(&c.ID, &c.PatientID, &c.TakenAt, &symptoms, &c.Notes, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(symptoms, &c.Symptoms); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCheckinRows(rows pgx.Rows) (*Checkin, error) {
	var c Checkin
	var symptoms []byte
	if err := rows.Scan(&c.ID, &c.PatientID, &c.TakenAt, &symptoms, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(symptoms, &c.Symptoms); err != nil {
		return nil, err
	}
	return &c, nil
}
