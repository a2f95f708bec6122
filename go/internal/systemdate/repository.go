package systemdate

import (
	"context"
	"time"

	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
)

// Repository implements system date data access. The table holds a single row.
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new system date repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// GetSystemDate reads the singleton row.
func (r *Repository) GetSystemDate(ctx context.Context) (*models.SystemDate, error) {
	var sd models.SystemDate
	err := r.db.QueryRow(ctx, `SELECT date, updated_at FROM system_date WHERE id = 1`).
		Scan(&sd.Date, &sd.UpdatedAt)
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get system date", "system_date", 1)
	}
	return &sd, nil
}

// SetSystemDate upserts the singleton row.
func (r *Repository) SetSystemDate(ctx context.Context, date time.Time) (*models.SystemDate, error) {
	var sd models.SystemDate
	err := r.db.QueryRow(ctx, `
		INSERT INTO system_date (id, date, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET date = EXCLUDED.date, updated_at = EXCLUDED.updated_at
		RETURNING date, updated_at`,
		sqlutil.CalendarDate(date),
	).Scan(&sd.Date, &sd.UpdatedAt)
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to set system date", "system_date", 1)
	}
	return &sd, nil
}
