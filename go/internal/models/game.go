package models

import (
	"time"

	"github.com/google/uuid"
)

// Game is a scheduled matchup. StartsAt is an absolute instant; callers project
// it into the reference zone before comparing calendar dates.
type Game struct {
	ID         uuid.UUID `json:"id"`
	LeagueID   uuid.UUID `json:"league_id"`
	HomeTeamID uuid.UUID `json:"home_team_id"`
	AwayTeamID uuid.UUID `json:"away_team_id"`
	StartsAt   time.Time `json:"starts_at"`
}

// Involves reports whether the team plays in this game.
func (g Game) Involves(teamID uuid.UUID) bool {
	return g.HomeTeamID == teamID || g.AwayTeamID == teamID
}

// Started reports whether the game has begun at now, compared at minute precision.
func (g Game) Started(now time.Time) bool {
	return !g.StartsAt.Truncate(time.Minute).After(now.Truncate(time.Minute))
}
