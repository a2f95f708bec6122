package slips

import (
	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/settlement"
)

// MaxCreatorCodeLength bounds Slip.CreatorCode.
const MaxCreatorCodeLength = 128

// PickRequest is one leg of a slip being placed
type PickRequest struct {
	SublineID uuid.UUID `json:"subline_id"`
	Under     bool      `json:"under"`
}

// CreateSlipRequest represents the data needed to place a slip
type CreateSlipRequest struct {
	Picks       []PickRequest `json:"picks"`
	EntryAmount int           `json:"entry_amount"`
	CreatorCode *string       `json:"creator_code,omitempty"`
}

// CreateSlipResult echoes the tier the slip was placed under
type CreateSlipResult struct {
	SlipID     uuid.UUID `json:"slip_id"`
	FreeToPlay bool      `json:"free_to_play"`
}

// SlipView is a slip with its derived settlement state
type SlipView struct {
	Slip       models.Slip            `json:"slip"`
	Evaluation *settlement.Evaluation `json:"evaluation"`
}
