package teams

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
)

// Repository implements team data access operations
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new teams repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{
		db: db,
	}
}

const teamColumns = `id, league_id, name, abbreviation, location, logo_url`

// UpsertTeam inserts a team keyed by (league, abbreviation)
func (r *Repository) UpsertTeam(ctx context.Context, req UpsertTeamRequest) (*models.Team, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO teams (id, league_id, name, abbreviation, location, logo_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (league_id, abbreviation) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			logo_url = EXCLUDED.logo_url
		RETURNING `+teamColumns,
		uuid.New(), req.LeagueID, req.Name, req.Abbreviation, req.Location, req.LogoURL,
	)
	team, err := scanTeam(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert team: %w", err)
	}
	return team, nil
}

// GetTeam retrieves a team by ID
func (r *Repository) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team, err := scanTeam(r.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get team", "team", id)
	}
	return team, nil
}

// GetTeamByAbbreviation retrieves a team by league and abbreviation
func (r *Repository) GetTeamByAbbreviation(ctx context.Context, leagueID uuid.UUID, abbreviation string) (*models.Team, error) {
	team, err := scanTeam(r.db.QueryRow(ctx, `
		SELECT `+teamColumns+` FROM teams
		WHERE league_id = $1 AND abbreviation = $2`, leagueID, abbreviation))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get team by abbreviation", "team", abbreviation)
	}
	return team, nil
}

// ListTeamsByLeague retrieves a league's teams ordered by name
func (r *Repository) ListTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+teamColumns+` FROM teams WHERE league_id = $1 ORDER BY name`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by league: %w", err)
	}
	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Team, error) {
		t, err := scanTeam(row)
		if err != nil {
			return models.Team{}, err
		}
		return *t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan teams: %w", err)
	}
	return teams, nil
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	if err := row.Scan(&t.ID, &t.LeagueID, &t.Name, &t.Abbreviation, &t.Location, &t.LogoURL); err != nil {
		return nil, err
	}
	return &t, nil
}
