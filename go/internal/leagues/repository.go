package leagues

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
)

// Repository implements league, position and line category data access
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new leagues repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{
		db: db,
	}
}

const leagueColumns = `id, acronym, long_name`

// UpsertLeague inserts a league keyed by acronym
func (r *Repository) UpsertLeague(ctx context.Context, req UpsertLeagueRequest) (*models.League, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO leagues (id, acronym, long_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (acronym) DO UPDATE SET long_name = EXCLUDED.long_name
		RETURNING `+leagueColumns,
		uuid.New(), req.Acronym, req.LongName,
	)
	league, err := scanLeague(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert league: %w", err)
	}
	return league, nil
}

// GetLeagueByAcronym retrieves a league by acronym
func (r *Repository) GetLeagueByAcronym(ctx context.Context, acronym string) (*models.League, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE acronym = $1`, acronym)
	league, err := scanLeague(row)
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get league by acronym", "league", acronym)
	}
	return league, nil
}

// ListLeagues retrieves all leagues ordered by acronym
func (r *Repository) ListLeagues(ctx context.Context) ([]models.League, error) {
	rows, err := r.db.Query(ctx, `SELECT `+leagueColumns+` FROM leagues ORDER BY acronym`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	leagues, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.League, error) {
		l, err := scanLeague(row)
		if err != nil {
			return models.League{}, err
		}
		return *l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan leagues: %w", err)
	}
	return leagues, nil
}

// UpsertPosition inserts a position keyed by (league, acronym)
func (r *Repository) UpsertPosition(ctx context.Context, req UpsertPositionRequest) (*models.Position, error) {
	var p models.Position
	err := r.db.QueryRow(ctx, `
		INSERT INTO positions (id, league_id, name, acronym)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (league_id, acronym) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, league_id, name, acronym`,
		uuid.New(), req.LeagueID, req.Name, req.Acronym,
	).Scan(&p.ID, &p.LeagueID, &p.Name, &p.Acronym)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert position: %w", err)
	}
	return &p, nil
}

// ListPositions retrieves a league's positions
func (r *Repository) ListPositions(ctx context.Context, leagueID uuid.UUID) ([]models.Position, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, league_id, name, acronym FROM positions
		WHERE league_id = $1 ORDER BY acronym`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	positions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Position, error) {
		var p models.Position
		err := row.Scan(&p.ID, &p.LeagueID, &p.Name, &p.Acronym)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan positions: %w", err)
	}
	return positions, nil
}

const categoryColumns = `id, league_id, category, display_order`

// UpsertLineCategory inserts a category keyed by (league, category)
func (r *Repository) UpsertLineCategory(ctx context.Context, req UpsertLineCategoryRequest) (*models.LineCategory, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO line_categories (id, league_id, category, display_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (league_id, category) DO UPDATE SET display_order = EXCLUDED.display_order
		RETURNING `+categoryColumns,
		uuid.New(), req.LeagueID, req.Category, req.DisplayOrder,
	)
	cat, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert line category: %w", err)
	}
	return cat, nil
}

// GetLineCategory retrieves a category by ID
func (r *Repository) GetLineCategory(ctx context.Context, id uuid.UUID) (*models.LineCategory, error) {
	row := r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM line_categories WHERE id = $1`, id)
	cat, err := scanCategory(row)
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get line category", "line_category", id)
	}
	return cat, nil
}

// GetLineCategoryByName retrieves a league's category by case-insensitive name
func (r *Repository) GetLineCategoryByName(ctx context.Context, leagueID uuid.UUID, category string) (*models.LineCategory, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM line_categories
		WHERE league_id = $1 AND lower(category) = lower($2)`, leagueID, category)
	cat, err := scanCategory(row)
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get line category by name", "line_category", category)
	}
	return cat, nil
}

// ListLineCategories retrieves a league's categories in display order
func (r *Repository) ListLineCategories(ctx context.Context, leagueID uuid.UUID) ([]models.LineCategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM line_categories
		WHERE league_id = $1 ORDER BY display_order, category`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line categories: %w", err)
	}
	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LineCategory, error) {
		c, err := scanCategory(row)
		if err != nil {
			return models.LineCategory{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan line categories: %w", err)
	}
	return cats, nil
}

func scanLeague(row pgx.Row) (*models.League, error) {
	var l models.League
	if err := row.Scan(&l.ID, &l.Acronym, &l.LongName); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanCategory(row pgx.Row) (*models.LineCategory, error) {
	var c models.LineCategory
	if err := row.Scan(&c.ID, &c.LeagueID, &c.Category, &c.DisplayOrder); err != nil {
		return nil, err
	}
	return &c, nil
}
