package clinician

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

func (r *repoPG) Create(ctx context.Context, c *Clinician) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinician (id, name, email, active)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.Name, c.Email, c.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	var c Clinician
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, email, active, created_at
		FROM clinician WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Clinician, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinician`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, email, active, created_at
		FROM clinician ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clins []*Clinician
	for rows.Next() {
		var c Clinician
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Active, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		clins = append(clins, &c)
	}
	return clins, total, rows.Err()
}

func (r *repoPG) CreateEnrollment(ctx context.Context, e *Enrollment) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO enrollment (id, clinician_id, patient_id, status, started_at)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.ClinicianID, e.PatientID, e.Status, e.StartedAt,
	)
	return err
}

func (r *repoPG) EndEnrollment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE enrollment SET status = 'ended', ended_at = NOW()
		WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*Clinician, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.name, c.email, c.active, c.created_at
		FROM clinician c
		JOIN enrollment e ON e.clinician_id = c.id
		WHERE e.patient_id = $1 AND e.status = 'active' AND c.active
		ORDER BY c.name`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clins []*Clinician
	for rows.Next() {
		var c Clinician
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		clins = append(clins, &c)
	}
	return clins, rows.Err()
}
