package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
	"github.com/mcdev12/underline/go/internal/users"
	"github.com/shopspring/decimal"
)

// Repository implements wallet data access operations
type Repository struct {
	db sqlutil.Pool
}

// NewRepository creates a new wallet repository
func NewRepository(db sqlutil.Pool) *Repository {
	return &Repository{db: db}
}

// Queries are the wallet writes bound to one transaction
type Queries struct {
	db sqlutil.DBTX
}

// NewQueries binds wallet writes to db
func NewQueries(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
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

// ResetFreeToPlayBalances sets every free-to-play balance to topOff
func (r *Repository) ResetFreeToPlayBalances(ctx context.Context, topOff decimal.Decimal) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE users SET wallet_balance = $1 WHERE free_to_play`, topOff)
	if err != nil {
		return 0, fmt.Errorf("failed to reset balances: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetBalance writes a user's balance
func (q *Queries) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	tag, err := q.db.Exec(ctx, `UPDATE users SET wallet_balance = $2 WHERE id = $1`, userID, balance)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user", userID)
	}
	return nil
}

// InsertDeposit stores a deposit and its audit blobs
func (q *Queries) InsertDeposit(ctx context.Context, d models.Deposit) (*models.Deposit, error) {
	var out models.Deposit
	err := q.db.QueryRow(ctx, `
		INSERT INTO deposits (id, user_id, amount, transaction_detail, order_detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, amount, transaction_detail, order_detail, created_at`,
		d.ID, d.UserID, d.Amount, d.TransactionDetail, d.OrderDetail,
	).Scan(&out.ID, &out.UserID, &out.Amount, &out.TransactionDetail, &out.OrderDetail, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
