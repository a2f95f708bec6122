package games

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
)

// Repository implements game data access operations
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new games repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

const gameColumns = `id, league_id, home_team_id, away_team_id, starts_at`

// UpsertGame inserts a game, returning the existing row on conflict
func (r *Repository) UpsertGame(ctx context.Context, req UpsertGameRequest) (*models.Game, error) {
	game, err := scanGame(r.db.QueryRow(ctx, `
		INSERT INTO games (id, league_id, home_team_id, away_team_id, starts_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (league_id, home_team_id, away_team_id, starts_at)
			DO UPDATE SET starts_at = EXCLUDED.starts_at
		RETURNING `+gameColumns,
		uuid.New(), req.LeagueID, req.HomeTeamID, req.AwayTeamID, req.StartsAt.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert game: %w", err)
	}
	return game, nil
}

// GetGame retrieves a game by ID
func (r *Repository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	game, err := scanGame(r.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get game", "game", id)
	}
	return game, nil
}

// ListGamesBetween lists games starting in [start, end)
func (r *Repository) ListGamesBetween(ctx context.Context, start, end time.Time) ([]models.Game, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE starts_at >= $1 AND starts_at < $2
		ORDER BY starts_at, id`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return collectGames(rows)
}

// ListTeamGamesBetween lists a team's games starting in [start, end)
func (r *Repository) ListTeamGamesBetween(ctx context.Context, teamID uuid.UUID, start, end time.Time) ([]models.Game, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE (home_team_id = $1 OR away_team_id = $1)
		  AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at, id`, teamID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list team games: %w", err)
	}
	return collectGames(rows)
}

func collectGames(rows pgx.Rows) ([]models.Game, error) {
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Game, error) {
		g, err := scanGame(row)
		if err != nil {
			return models.Game{}, err
		}
		return *g, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan games: %w", err)
	}
	return games, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	if err := row.Scan(&g.ID, &g.LeagueID, &g.HomeTeamID, &g.AwayTeamID, &g.StartsAt); err != nil {
		return nil, err
	}
	return &g, nil
}
