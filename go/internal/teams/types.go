package teams

import "github.com/google/uuid"

// UpsertTeamRequest represents the data needed to create or refresh a team
type UpsertTeamRequest struct {
	LeagueID     uuid.UUID `json:"league_id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Location     string    `json:"location"`
	LogoURL      string    `json:"logo_url"`
}
