package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Slip is a user's wager over several picks, settled all-or-nothing.
// Completeness, invalidation, outcome and payout are derived on read by the
// settlement package and never stored.
type Slip struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	EntryAmount int       `json:"entry_amount"`
	FreeToPlay  bool      `json:"free_to_play"`
	CreatorCode *string   `json:"creator_code,omitempty"`
	// BusinessDate is the system date the slip was placed on. Stake caps and
	// daily result notifications group by it, never by CreatedAt.
	BusinessDate time.Time `json:"business_date"`
	CreatedAt    time.Time `json:"created_at"`
	Picks       []Pick    `json:"picks"`
}

// Pick is one leg of a slip. The subline and line snapshots are loaded with the
// pick so outcomes can be derived without further reads.
type Pick struct {
	ID        uuid.UUID `json:"id"`
	SlipID    uuid.UUID `json:"slip_id"`
	SublineID uuid.UUID `json:"subline_id"`
	Under     bool      `json:"under"`

	ProjectedValue decimal.Decimal  `json:"projected_value"`
	ActualValue    *decimal.Decimal `json:"actual_value,omitempty"`
	Invalidated    bool             `json:"invalidated"`
	LineID         uuid.UUID        `json:"line_id"`
}
