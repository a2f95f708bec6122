package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
)

// Repository implements user data access operations
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new users repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// UserColumns is the select list ScanUser expects.
const UserColumns = `id, email, username, first_name, last_name, wallet_balance, free_to_play, creator, created_at`

// CreateUser creates a new user with an empty wallet
func (r *Repository) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	user, err := ScanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, first_name, last_name, free_to_play, creator)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+UserColumns,
		uuid.New(), req.Email, req.Username, req.FirstName, req.LastName, req.FreeToPlay, req.Creator,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := ScanUser(r.db.QueryRow(ctx, `SELECT `+UserColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get user", "user", id)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := ScanUser(r.db.QueryRow(ctx, `SELECT `+UserColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get user by username", "user", username)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := ScanUser(r.db.QueryRow(ctx, `SELECT `+UserColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get user by email", "user", email)
	}
	return user, nil
}

// UpdateUser updates profile fields
func (r *Repository) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	user, err := ScanUser(r.db.QueryRow(ctx, `
		UPDATE users SET username = $2, first_name = $3, last_name = $4
		WHERE id = $1
		RETURNING `+UserColumns,
		id, req.Username, req.FirstName, req.LastName,
	))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to update user", "user", id)
	}
	return user, nil
}

// ScanUser scans a row selected with UserColumns
func ScanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.WalletBalance, &u.FreeToPlay, &u.Creator, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// LockUser selects a user row FOR UPDATE. db must be a transaction; the lock
// serializes every balance change for the user until it ends.
func LockUser(ctx context.Context, db sqlutil.DBTX, id uuid.UUID) (*models.User, error) {
	user, err := ScanUser(db.QueryRow(ctx, `SELECT `+UserColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to lock user", "user", id)
	}
	return user, nil
}
