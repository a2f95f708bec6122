package player

import "github.com/google/uuid"

// UpsertPlayerRequest represents the data needed to create or refresh a
// player. Players are keyed by name.
type UpsertPlayerRequest struct {
	TeamID      uuid.UUID   `json:"team_id"`
	Name        string      `json:"name"`
	HeadshotURL *string     `json:"headshot_url,omitempty"`
	Premier     bool        `json:"premier"`
	PositionIDs []uuid.UUID `json:"position_ids,omitempty"`
}
