package games

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/rs/zerolog/log"
)

// GamesRepository defines what the app layer needs from the repository
type GamesRepository interface {
	UpsertGame(ctx context.Context, req UpsertGameRequest) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	ListGamesBetween(ctx context.Context, start, end time.Time) ([]models.Game, error)
	ListTeamGamesBetween(ctx context.Context, teamID uuid.UUID, start, end time.Time) ([]models.Game, error)
}

// App handles game schedule logic
type App struct {
	repo GamesRepository
	loc  *time.Location
}

// NewApp creates a new games App. Calendar days are taken in loc.
func NewApp(repo GamesRepository, loc *time.Location) *App {
	return &App{
		repo: repo,
		loc:  loc,
	}
}

// UpsertGame creates a game if it is not already scheduled
func (a *App) UpsertGame(ctx context.Context, req UpsertGameRequest) (*models.Game, error) {
	if err := a.validateUpsertGameRequest(req); err != nil {
		return nil, err
	}

	game, err := a.repo.UpsertGame(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert game: %w", err)
	}

	log.Debug().
		Str("game_id", game.ID.String()).
		Time("starts_at", game.StartsAt).
		Msg("upserted game")
	return game, nil
}

// GetGame retrieves a game by ID
func (a *App) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	game, err := a.repo.GetGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// GamesOnDate lists the games starting on date's calendar day in the
// reference zone, earliest first.
func (a *App) GamesOnDate(ctx context.Context, date time.Time) ([]models.Game, error) {
	w := systemdate.DayWindow(date, a.loc)
	games, err := a.repo.ListGamesBetween(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list games on %s: %w", date.Format(systemdate.DateLayout), err)
	}
	return games, nil
}

// GameForTeamOnDate finds the team's game on date. When a team plays twice
// the earlier game wins.
func (a *App) GameForTeamOnDate(ctx context.Context, teamID uuid.UUID, date time.Time) (*models.Game, error) {
	w := systemdate.DayWindow(date, a.loc)
	games, err := a.repo.ListTeamGamesBetween(ctx, teamID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list team games: %w", err)
	}
	if len(games) == 0 {
		return nil, apperr.NotFound("game", fmt.Sprintf("team %s on %s", teamID, date.In(a.loc).Format(systemdate.DateLayout)))
	}
	return &games[0], nil
}

// validateUpsertGameRequest validates upsert game request
func (a *App) validateUpsertGameRequest(req UpsertGameRequest) error {
	if req.LeagueID == uuid.Nil {
		return apperr.Validation(apperr.CodeInvalidInput, "league_id", "league_id is required")
	}
	if req.HomeTeamID == uuid.Nil || req.AwayTeamID == uuid.Nil {
		return apperr.Validation(apperr.CodeInvalidInput, "home_team_id", "both teams are required")
	}
	if req.HomeTeamID == req.AwayTeamID {
		return apperr.Validation(apperr.CodeInvalidInput, "away_team_id", "a team cannot play itself")
	}
	if req.StartsAt.IsZero() {
		return apperr.Validation(apperr.CodeInvalidInput, "starts_at", "starts_at is required")
	}
	return nil
}
