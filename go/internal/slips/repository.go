package slips

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/lines"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
	"github.com/mcdev12/underline/go/internal/users"
	"github.com/mcdev12/underline/go/internal/wallet"
	"github.com/shopspring/decimal"
)

// Repository implements slip data access operations
type Repository struct {
	db sqlutil.Pool
}

// NewRepository creates a new slips repository
func NewRepository(db sqlutil.Pool) *Repository {
	return &Repository{db: db}
}

// Queries are the slip reads and writes bound to one transaction
type Queries struct {
	db     sqlutil.DBTX
	wallet *wallet.Queries
}

// NewQueries binds slip queries to db
func NewQueries(db sqlutil.DBTX) *Queries {
	return &Queries{db: db, wallet: wallet.NewQueries(db)}
}

// WithinUserLock locks the user row and runs fn in the same transaction
func (r *Repository) WithinUserLock(ctx context.Context, userID uuid.UUID, fn func(tx Tx, user *models.User) error) error {
	return sqlutil.Run(ctx, r.db, func(tx pgx.Tx) *Queries { return NewQueries(tx) }, func(q *Queries) error {
		user, err := users.LockUser(ctx, q.db, userID)
		if err != nil {
			return err
		}
		return fn(q, user)
	})
}

// GetSublines loads sublines with their line, player and game whatever their
// visibility
func (q *Queries) GetSublines(ctx context.Context, ids []uuid.UUID) ([]models.OfferedSubline, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+lines.OfferedSublineColumns+`
		FROM `+lines.OfferedSublineJoins+`
		WHERE s.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OfferedSubline, error) {
		return lines.ScanOfferedSubline(row)
	})
}

// SumStakes totals the user's entry amounts for slips placed on businessDate
func (q *Queries) SumStakes(ctx context.Context, userID uuid.UUID, businessDate time.Time) (int, error) {
	var total int
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(entry_amount), 0)::int FROM slips
		WHERE user_id = $1 AND business_date = $2`,
		userID, sqlutil.CalendarDate(businessDate),
	).Scan(&total)
	return total, err
}

// InsertSlip inserts a slip and its picks
func (q *Queries) InsertSlip(ctx context.Context, slip models.Slip) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO slips (id, user_id, entry_amount, free_to_play, creator_code, business_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		slip.ID, slip.UserID, slip.EntryAmount, slip.FreeToPlay, slip.CreatorCode,
		sqlutil.CalendarDate(slip.BusinessDate), slip.CreatedAt.UTC())
	if err != nil {
		return err
	}

	for _, p := range slip.Picks {
		_, err := q.db.Exec(ctx, `INSERT INTO picks (id, slip_id, subline_id, under) VALUES ($1, $2, $3, $4)`,
			p.ID, slip.ID, p.SublineID, p.Under)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetBalance writes the owner's balance inside the slip transaction
func (q *Queries) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	return q.wallet.SetBalance(ctx, userID, balance)
}

// ListSlipsForUser lists a user's slips with their picks, newest first
func (r *Repository) ListSlipsForUser(ctx context.Context, userID uuid.UUID) ([]models.Slip, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slipColumns+` FROM slips
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slips: %w", err)
	}
	return r.withPicks(ctx, rows)
}

// ListSlipsForBusinessDate lists every slip placed on businessDate with picks
func (r *Repository) ListSlipsForBusinessDate(ctx context.Context, businessDate time.Time) ([]models.Slip, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slipColumns+` FROM slips
		WHERE business_date = $1
		ORDER BY user_id, created_at, id`, sqlutil.CalendarDate(businessDate))
	if err != nil {
		return nil, fmt.Errorf("failed to list slips: %w", err)
	}
	return r.withPicks(ctx, rows)
}

const slipColumns = `id, user_id, entry_amount, free_to_play, creator_code, business_date, created_at`

func (r *Repository) withPicks(ctx context.Context, rows pgx.Rows) ([]models.Slip, error) {
	slips, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Slip, error) {
		var s models.Slip
		err := row.Scan(&s.ID, &s.UserID, &s.EntryAmount, &s.FreeToPlay, &s.CreatorCode, &s.BusinessDate, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan slips: %w", err)
	}
	if len(slips) == 0 {
		return slips, nil
	}

	ids := make([]uuid.UUID, len(slips))
	index := make(map[uuid.UUID]int, len(slips))
	for i, s := range slips {
		ids[i] = s.ID
		index[s.ID] = i
	}

	pickRows, err := r.db.Query(ctx, `
		SELECT p.id, p.slip_id, p.subline_id, p.under,
		       s.projected_value, l.actual_value, l.invalidated, l.id
		FROM picks p
		JOIN sublines s ON s.id = p.subline_id
		JOIN lines l ON l.id = s.line_id
		WHERE p.slip_id = ANY($1)
		ORDER BY p.slip_id, p.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	picks, err := pgx.CollectRows(pickRows, func(row pgx.CollectableRow) (models.Pick, error) {
		var (
			p      models.Pick
			actual decimal.NullDecimal
		)
		err := row.Scan(&p.ID, &p.SlipID, &p.SublineID, &p.Under, &p.ProjectedValue, &actual, &p.Invalidated, &p.LineID)
		p.ActualValue = sqlutil.FromNullDecimal(actual)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan picks: %w", err)
	}

	for _, p := range picks {
		i := index[p.SlipID]
		slips[i].Picks = append(slips[i].Picks, p)
	}
	return slips, nil
}
