package leagues

import (
	"github.com/google/uuid"
)

// UpsertLeagueRequest represents the data needed to create or refresh a league
type UpsertLeagueRequest struct {
	Acronym  string `json:"acronym"`
	LongName string `json:"long_name"`
}

// UpsertPositionRequest represents a playing position within a league
type UpsertPositionRequest struct {
	LeagueID uuid.UUID `json:"league_id"`
	Name     string    `json:"name"`
	Acronym  string    `json:"acronym"`
}

// UpsertLineCategoryRequest represents a statistic type offered for a league
type UpsertLineCategoryRequest struct {
	LeagueID     uuid.UUID `json:"league_id"`
	Category     string    `json:"category"`
	DisplayOrder int       `json:"display_order"`
}
