package teams

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TeamsRepository defines what the app layer needs from the repository
type TeamsRepository interface {
	UpsertTeam(ctx context.Context, req UpsertTeamRequest) (*models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetTeamByAbbreviation(ctx context.Context, leagueID uuid.UUID, abbreviation string) (*models.Team, error)
	ListTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
}

// App handles teams business logic
type App struct {
	repo TeamsRepository
}

// NewApp creates a new teams App
func NewApp(repo TeamsRepository) *App {
	return &App{
		repo: repo,
	}
}

// UpsertTeam creates a team or refreshes its details. Teams are keyed by
// league and abbreviation.
func (a *App) UpsertTeam(ctx context.Context, req UpsertTeamRequest) (*models.Team, error) {
	req.Abbreviation = strings.ToUpper(strings.TrimSpace(req.Abbreviation))
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validateUpsertTeamRequest(req); err != nil {
		return nil, err
	}

	team, err := a.repo.UpsertTeam(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert team: %w", err)
	}

	log.Debug().Str("team", team.Name).Str("abbreviation", team.Abbreviation).Msg("upserted team")
	return team, nil
}

// GetTeam retrieves a team by ID
func (a *App) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team, err := a.repo.GetTeam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// GetTeamByAbbreviation retrieves a league's team by abbreviation
func (a *App) GetTeamByAbbreviation(ctx context.Context, leagueID uuid.UUID, abbreviation string) (*models.Team, error) {
	team, err := a.repo.GetTeamByAbbreviation(ctx, leagueID, strings.ToUpper(strings.TrimSpace(abbreviation)))
	if err != nil {
		return nil, fmt.Errorf("failed to get team by abbreviation: %w", err)
	}
	return team, nil
}

// ListTeamsByLeague retrieves all teams for a league
func (a *App) ListTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	teams, err := a.repo.ListTeamsByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by league: %w", err)
	}
	return teams, nil
}

// validateUpsertTeamRequest validates upsert team request
func (a *App) validateUpsertTeamRequest(req UpsertTeamRequest) error {
	if req.LeagueID == uuid.Nil {
		return apperr.Validation(apperr.CodeInvalidInput, "league_id", "league_id is required")
	}
	if req.Name == "" {
		return apperr.Validation(apperr.CodeInvalidInput, "name", "name is required")
	}
	if req.Abbreviation == "" {
		return apperr.Validation(apperr.CodeInvalidInput, "abbreviation", "abbreviation is required")
	}
	return nil
}
