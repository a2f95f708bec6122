package games

import (
	"time"

	"github.com/google/uuid"
)

// UpsertGameRequest represents a scheduled matchup. Games are keyed by league,
// teams and start instant.
type UpsertGameRequest struct {
	LeagueID   uuid.UUID `json:"league_id"`
	HomeTeamID uuid.UUID `json:"home_team_id"`
	AwayTeamID uuid.UUID `json:"away_team_id"`
	StartsAt   time.Time `json:"starts_at"`
}
