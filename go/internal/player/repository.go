package player

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
)

// Repository implements player data access operations
type Repository struct {
	db sqlutil.Pool
}

// NewRepository creates a new player repository
func NewRepository(db sqlutil.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

const playerColumns = `id, team_id, name, headshot_url, premier`

// UpsertPlayer inserts or refreshes a player and replaces their positions in
// one transaction.
func (r *Repository) UpsertPlayer(ctx context.Context, req UpsertPlayerRequest) (*models.Player, error) {
	var player *models.Player
	err := sqlutil.Run(ctx, r.db, func(tx pgx.Tx) pgx.Tx { return tx }, func(tx pgx.Tx) error {
		p, err := scanPlayer(tx.QueryRow(ctx, `
			INSERT INTO players (id, team_id, league_id, name, headshot_url, premier)
			SELECT $1, t.id, t.league_id, $3, $4, $5 FROM teams t WHERE t.id = $2
			ON CONFLICT (league_id, (lower(name))) DO UPDATE SET
				team_id = EXCLUDED.team_id,
				headshot_url = EXCLUDED.headshot_url,
				premier = EXCLUDED.premier
			RETURNING `+playerColumns,
			uuid.New(), req.TeamID, req.Name, req.HeadshotURL, req.Premier,
		))
		if err != nil {
			return sqlutil.NotFound(err, "failed to upsert player", "team", req.TeamID)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM player_positions WHERE player_id = $1`, p.ID); err != nil {
			return fmt.Errorf("failed to clear player positions: %w", err)
		}
		for _, posID := range req.PositionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO player_positions (player_id, position_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, p.ID, posID); err != nil {
				return fmt.Errorf("failed to attach position %s: %w", posID, err)
			}
		}

		p.Positions, err = listPositions(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// GetPlayer retrieves a player with their positions
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	p, err := scanPlayer(r.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get player", "player", id)
	}
	if p.Positions, err = listPositions(ctx, r.db, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// FindPlayersByName matches names case-insensitively
func (r *Repository) FindPlayersByName(ctx context.Context, name string) ([]models.Player, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+playerColumns+` FROM players WHERE lower(name) = lower($1)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find players by name: %w", err)
	}
	players, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Player, error) {
		p, err := scanPlayer(row)
		if err != nil {
			return models.Player{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan players: %w", err)
	}
	return players, nil
}

// ListPlayerNames returns every player name on file
func (r *Repository) ListPlayerNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list player names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan player names: %w", err)
	}
	return names, nil
}

func listPositions(ctx context.Context, db sqlutil.DBTX, playerID uuid.UUID) ([]models.Position, error) {
	rows, err := db.Query(ctx, `
		SELECT p.id, p.league_id, p.name, p.acronym
		FROM player_positions pp
		JOIN positions p ON p.id = pp.position_id
		WHERE pp.player_id = $1
		ORDER BY p.acronym`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player positions: %w", err)
	}
	positions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Position, error) {
		var p models.Position
		err := row.Scan(&p.ID, &p.LeagueID, &p.Name, &p.Acronym)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan player positions: %w", err)
	}
	return positions, nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	if err := row.Scan(&p.ID, &p.TeamID, &p.Name, &p.HeadshotURL, &p.Premier); err != nil {
		return nil, err
	}
	return &p, nil
}
