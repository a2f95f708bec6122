package wallet

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Policy holds the configurable wallet rules
type Policy struct {
	// StakeCap bounds the sum of entry amounts per user per business day.
	StakeCap int `yaml:"stake_cap"`
	// MaxEntry bounds a single slip's entry amount.
	MaxEntry int `yaml:"max_entry"`
	// FreeToPlayTopOff is the balance every free-to-play account is reset to.
	FreeToPlayTopOff decimal.Decimal `yaml:"free_to_play_top_off"`
}

// DefaultPolicy returns the observed production rules
func DefaultPolicy() Policy {
	return Policy{
		StakeCap:         80,
		MaxEntry:         50,
		FreeToPlayTopOff: decimal.NewFromInt(100),
	}
}

// RecordDepositRequest carries a completed top-up from the payment
// collaborator. The detail blobs are stored verbatim for audit.
type RecordDepositRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	TransactionDetail json.RawMessage `json:"transaction_detail,omitempty"`
	OrderDetail       json.RawMessage `json:"order_detail,omitempty"`
}

// AdjustRequest is a manual balance correction. Positive amounts credit,
// negative amounts debit.
type AdjustRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}
