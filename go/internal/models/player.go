package models

import (
	"github.com/google/uuid"
)

// Player represents an athlete on a team.
type Player struct {
	ID          uuid.UUID  `json:"id"`
	TeamID      uuid.UUID  `json:"team_id"`
	Name        string     `json:"name"`
	HeadshotURL *string    `json:"headshot_url,omitempty"`
	Premier     bool       `json:"premier"` // display ordering only, never settlement
	Positions   []Position `json:"positions,omitempty"`
}
