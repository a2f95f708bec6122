package leagues

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/rs/zerolog/log"
)

// LeaguesRepository defines what the app layer needs from the repository
type LeaguesRepository interface {
	UpsertLeague(ctx context.Context, req UpsertLeagueRequest) (*models.League, error)
	GetLeagueByAcronym(ctx context.Context, acronym string) (*models.League, error)
	ListLeagues(ctx context.Context) ([]models.League, error)
	UpsertPosition(ctx context.Context, req UpsertPositionRequest) (*models.Position, error)
	ListPositions(ctx context.Context, leagueID uuid.UUID) ([]models.Position, error)
	UpsertLineCategory(ctx context.Context, req UpsertLineCategoryRequest) (*models.LineCategory, error)
	GetLineCategory(ctx context.Context, id uuid.UUID) (*models.LineCategory, error)
	GetLineCategoryByName(ctx context.Context, leagueID uuid.UUID, category string) (*models.LineCategory, error)
	ListLineCategories(ctx context.Context, leagueID uuid.UUID) ([]models.LineCategory, error)
}

// App handles leagues business logic
type App struct {
	repo LeaguesRepository
}

// NewApp creates a new leagues App
func NewApp(repo LeaguesRepository) *App {
	return &App{
		repo: repo,
	}
}

// UpsertLeague creates a league or refreshes its name
func (a *App) UpsertLeague(ctx context.Context, req UpsertLeagueRequest) (*models.League, error) {
	req.Acronym = strings.ToUpper(strings.TrimSpace(req.Acronym))
	if req.Acronym == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "acronym", "acronym is required")
	}
	if strings.TrimSpace(req.LongName) == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "long_name", "long_name is required")
	}

	league, err := a.repo.UpsertLeague(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert league: %w", err)
	}

	log.Info().Str("acronym", league.Acronym).Msg("upserted league")
	return league, nil
}

// GetLeagueByAcronym retrieves a league by its acronym, case-insensitively
func (a *App) GetLeagueByAcronym(ctx context.Context, acronym string) (*models.League, error) {
	league, err := a.repo.GetLeagueByAcronym(ctx, strings.ToUpper(strings.TrimSpace(acronym)))
	if err != nil {
		return nil, fmt.Errorf("failed to get league by acronym: %w", err)
	}
	return league, nil
}

// ListLeagues retrieves all leagues
func (a *App) ListLeagues(ctx context.Context) ([]models.League, error) {
	leagues, err := a.repo.ListLeagues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	return leagues, nil
}

// UpsertPosition creates or refreshes a position
func (a *App) UpsertPosition(ctx context.Context, req UpsertPositionRequest) (*models.Position, error) {
	if req.LeagueID == uuid.Nil {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "league_id", "league_id is required")
	}
	if req.Acronym == "" || req.Name == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "acronym", "name and acronym are required")
	}

	pos, err := a.repo.UpsertPosition(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert position: %w", err)
	}
	return pos, nil
}

// ListPositions retrieves the positions of a league
func (a *App) ListPositions(ctx context.Context, leagueID uuid.UUID) ([]models.Position, error) {
	positions, err := a.repo.ListPositions(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}

// UpsertLineCategory creates or reorders a line category
func (a *App) UpsertLineCategory(ctx context.Context, req UpsertLineCategoryRequest) (*models.LineCategory, error) {
	req.Category = strings.TrimSpace(req.Category)
	if req.LeagueID == uuid.Nil {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "league_id", "league_id is required")
	}
	if req.Category == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "category", "category is required")
	}
	if req.DisplayOrder < 0 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "display_order", "display_order must not be negative")
	}

	cat, err := a.repo.UpsertLineCategory(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert line category: %w", err)
	}

	log.Info().
		Str("league_id", cat.LeagueID.String()).
		Str("category", cat.Category).
		Int("display_order", cat.DisplayOrder).
		Msg("upserted line category")
	return cat, nil
}

// GetLineCategory retrieves a line category by ID
func (a *App) GetLineCategory(ctx context.Context, id uuid.UUID) (*models.LineCategory, error) {
	cat, err := a.repo.GetLineCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get line category: %w", err)
	}
	return cat, nil
}

// GetLineCategoryByName finds a league's category by name, case-insensitively
func (a *App) GetLineCategoryByName(ctx context.Context, leagueID uuid.UUID, category string) (*models.LineCategory, error) {
	cat, err := a.repo.GetLineCategoryByName(ctx, leagueID, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("failed to get line category %q: %w", category, err)
	}
	return cat, nil
}

// ListLineCategories retrieves a league's categories in display order
func (a *App) ListLineCategories(ctx context.Context, acronym string) ([]models.LineCategory, error) {
	league, err := a.GetLeagueByAcronym(ctx, acronym)
	if err != nil {
		return nil, err
	}

	cats, err := a.repo.ListLineCategories(ctx, league.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line categories: %w", err)
	}
	return cats, nil
}
