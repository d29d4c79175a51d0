package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification record not found")

type Repository interface {
	// GetPreference returns ErrNotFound for clinicians who never saved
	// settings; callers fall back to DefaultPreference.
	GetPreference(ctx context.Context, clinicianID uuid.UUID) (*Preference, error)
	SavePreference(ctx context.Context, p *Preference) error

	AppendLog(ctx context.Context, l *Log) error
	ListLogsByAlert(ctx context.Context, alertID uuid.UUID) ([]*Log, error)
	ListLogsByClinician(ctx context.Context, clinicianID uuid.UUID, limit, offset int) ([]*Log, int, error)
}
