package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents an account holder and their wallet
type User struct {
	ID            uuid.UUID       `json:"id"`
	Email         string          `json:"email"`
	Username      *string         `json:"username,omitempty"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	FreeToPlay    bool            `json:"free_to_play"`
	Creator       bool            `json:"creator"`
	CreatedAt     time.Time       `json:"created_at"`
}
