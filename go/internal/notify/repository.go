package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/underline/go/internal/apperr"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements notification outbox access over database/sql so the
// relay can share the lib/pq driver with its LISTEN connection.
type Repository struct {
	db   DBTX
	conn *sql.DB
}

// NewRepository creates a new outbox repository
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn, conn: conn}
}

// WithinTx runs fn against a transaction-bound repository
func (r *Repository) WithinTx(ctx context.Context, fn func(store OutboxStore) error) error {
	if r.conn == nil {
		return fn(r)
	}
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Repository{db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// InsertEvent stores the event unless one with the same ID exists
func (r *Repository) InsertEvent(ctx context.Context, e OutboxEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, user_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, e.EventType, []byte(e.Payload))
	if err != nil {
		return false, fmt.Errorf("failed to insert outbox event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// FetchUnsent locks up to limit unsent events, oldest first. Rows locked by
// another relay are skipped.
func (r *Repository) FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, event_type, payload, created_at
		FROM notification_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// FetchUnsentByID loads one unsent event
func (r *Repository) FetchUnsentByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	var e OutboxEvent
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, event_type, payload, created_at
		FROM notification_outbox
		WHERE id = $1 AND sent_at IS NULL`, id,
	).Scan(&e.ID, &e.UserID, &e.EventType, &e.Payload, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("unsent outbox event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	return &e, nil
}

// MarkSent stamps sent_at on the given events
func (r *Repository) MarkSent(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_outbox SET sent_at = now()
		WHERE id = ANY($1::uuid[]) AND sent_at IS NULL`, pq.Array(strs))
	if err != nil {
		return fmt.Errorf("failed to mark outbox events sent: %w", err)
	}
	return nil
}

// CountUnsent returns how many events are waiting to be relayed
func (r *Repository) CountUnsent(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_outbox WHERE sent_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsent outbox events: %w", err)
	}
	return n, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	return r.conn.PingContext(ctx)
}
