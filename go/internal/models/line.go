package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is a statistic tracked for a player in a game. Lines are never deleted
// because settled picks reference them.
type Line struct {
	ID          uuid.UUID        `json:"id"`
	PlayerID    uuid.UUID        `json:"player_id"`
	GameID      uuid.UUID        `json:"game_id"`
	CategoryID  uuid.UUID        `json:"category_id"`
	ActualValue *decimal.Decimal `json:"actual_value,omitempty"` // nil until final stats arrive
	Invalidated bool             `json:"invalidated"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Subline is a projected threshold offered against a line.
type Subline struct {
	ID             uuid.UUID       `json:"id"`
	LineID         uuid.UUID       `json:"line_id"`
	ProjectedValue decimal.Decimal `json:"projected_value"`
	Visible        bool            `json:"visible"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OfferedSubline is a subline joined with everything a client needs to render
// it and everything slip creation needs to validate it.
type OfferedSubline struct {
	Subline  Subline      `json:"subline"`
	Line     Line         `json:"line"`
	Category LineCategory `json:"category"`
	Player   Player       `json:"player"`
	Game     Game         `json:"game"`
}
