package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
)

// Deposit records a wallet top-up. The detail blobs come from the payment
// collaborator and are stored for audit only.
type Deposit struct {
	ID                uuid.UUID             `json:"id"`
	UserID            uuid.UUID             `json:"user_id"`
	Amount            decimal.Decimal       `json:"amount"`
	TransactionDetail pqtype.NullRawMessage `json:"-"`
	OrderDetail       pqtype.NullRawMessage `json:"-"`
	CreatedAt         time.Time             `json:"created_at"`
}
