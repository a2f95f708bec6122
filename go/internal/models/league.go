package models

import (
	"github.com/google/uuid"
)

// League is immutable reference data (NBA, WNBA, ...). It owns teams,
// positions and line categories.
type League struct {
	ID       uuid.UUID `json:"id"`
	Acronym  string    `json:"acronym"`
	LongName string    `json:"long_name"`
}

// Position is a playing position within a league
type Position struct {
	ID       uuid.UUID `json:"id"`
	LeagueID uuid.UUID `json:"league_id"`
	Name     string    `json:"name"`
	Acronym  string    `json:"acronym"`
}

// LineCategory is a named statistic type (Points, Rebounds, ...) offered for a league.
type LineCategory struct {
	ID           uuid.UUID `json:"id"`
	LeagueID     uuid.UUID `json:"league_id"`
	Category     string    `json:"category"`
	DisplayOrder int       `json:"display_order"`
}
