package models

import (
	"github.com/google/uuid"
)

// Team represents a real team in a league
type Team struct {
	ID           uuid.UUID `json:"id"`
	LeagueID     uuid.UUID `json:"league_id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Location     string    `json:"location"`
	LogoURL      string    `json:"logo_url"`
}
