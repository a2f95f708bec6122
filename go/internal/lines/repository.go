package lines

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/sqlutil"
	"github.com/shopspring/decimal"
)

// Repository implements line and subline data access operations
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new lines repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

const lineColumns = `id, player_id, game_id, category_id, actual_value, invalidated, created_at`

// CreateLine inserts a line, returning the existing row for the same
// player, game and category.
func (r *Repository) CreateLine(ctx context.Context, req CreateLineRequest) (*models.Line, error) {
	line, err := scanLine(r.db.QueryRow(ctx, `
		INSERT INTO lines (id, player_id, game_id, category_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, game_id, category_id)
			DO UPDATE SET player_id = EXCLUDED.player_id
		RETURNING `+lineColumns,
		uuid.New(), req.PlayerID, req.GameID, req.CategoryID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert line: %w", err)
	}
	return line, nil
}

// GetLine retrieves a line by ID
func (r *Repository) GetLine(ctx context.Context, id uuid.UUID) (*models.Line, error) {
	line, err := scanLine(r.db.QueryRow(ctx, `SELECT `+lineColumns+` FROM lines WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get line", "line", id)
	}
	return line, nil
}

// GetLineByKey retrieves the line for a player, game and category
func (r *Repository) GetLineByKey(ctx context.Context, playerID, gameID, categoryID uuid.UUID) (*models.Line, error) {
	line, err := scanLine(r.db.QueryRow(ctx, `
		SELECT `+lineColumns+` FROM lines
		WHERE player_id = $1 AND game_id = $2 AND category_id = $3`,
		playerID, gameID, categoryID,
	))
	if err != nil {
		return nil, sqlutil.NotFound(err, "failed to get line", "line", fmt.Sprintf("%s/%s/%s", playerID, gameID, categoryID))
	}
	return line, nil
}

// SetActualValue records the final statistic for a line
func (r *Repository) SetActualValue(ctx context.Context, id uuid.UUID, value decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE lines SET actual_value = $2 WHERE id = $1`, id, value)
	if err != nil {
		return fmt.Errorf("failed to set actual value: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("line", id)
	}
	return nil
}

// InvalidateLine marks a line invalidated and hides all of its sublines in
// one statement.
func (r *Repository) InvalidateLine(ctx context.Context, id uuid.UUID) error {
	var lineID uuid.UUID
	err := r.db.QueryRow(ctx, `
		WITH invalidated AS (
			UPDATE lines SET invalidated = TRUE WHERE id = $1 RETURNING id
		), hidden AS (
			UPDATE sublines SET visible = FALSE
			WHERE line_id IN (SELECT id FROM invalidated) AND visible
		)
		SELECT id FROM invalidated`, id).Scan(&lineID)
	if err != nil {
		return sqlutil.NotFound(err, "failed to invalidate line", "line", id)
	}
	return nil
}

// CreateSubline hides any visible subline on the line and inserts the new
// projection as the visible one.
func (r *Repository) CreateSubline(ctx context.Context, lineID uuid.UUID, projected decimal.Decimal) (*models.Subline, error) {
	var s models.Subline
	err := r.db.QueryRow(ctx, `
		WITH superseded AS (
			UPDATE sublines SET visible = FALSE WHERE line_id = $2 AND visible
		)
		INSERT INTO sublines (id, line_id, projected_value, visible)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, line_id, projected_value, visible, created_at`,
		uuid.New(), lineID, projected,
	).Scan(&s.ID, &s.LineID, &s.ProjectedValue, &s.Visible, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert subline: %w", err)
	}
	return &s, nil
}

// ListOfferedSublines lists visible sublines on live lines for games that
// start in [start, end).
func (r *Repository) ListOfferedSublines(ctx context.Context, start, end time.Time) ([]models.OfferedSubline, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+OfferedSublineColumns+`
		FROM `+OfferedSublineJoins+`
		WHERE s.visible AND NOT l.invalidated
		  AND g.starts_at >= $1 AND g.starts_at < $2
		ORDER BY g.starts_at, c.display_order, s.created_at, s.id`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list offered sublines: %w", err)
	}

	offered, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OfferedSubline, error) {
		return ScanOfferedSubline(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan offered sublines: %w", err)
	}
	return offered, nil
}

// HideSublinesStartedBy hides visible sublines whose game's start minute is
// at or before cutoff and returns their IDs.
func (r *Repository) HideSublinesStartedBy(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE sublines s SET visible = FALSE
		FROM lines l, games g
		WHERE l.id = s.line_id AND g.id = l.game_id
		  AND s.visible
		  AND date_trunc('minute', g.starts_at) <= $1
		RETURNING s.id`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to hide sublines: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to collect hidden sublines: %w", err)
	}
	return ids, nil
}

// OfferedSublineColumns and OfferedSublineJoins select what
// ScanOfferedSubline reads. Aliases: s sublines, l lines, c line_categories,
// p players, g games.
const (
	OfferedSublineColumns = `s.id, s.line_id, s.projected_value, s.visible, s.created_at,
		l.id, l.player_id, l.game_id, l.category_id, l.actual_value, l.invalidated, l.created_at,
		c.id, c.league_id, c.category, c.display_order,
		p.id, p.team_id, p.name, p.headshot_url, p.premier,
		g.id, g.league_id, g.home_team_id, g.away_team_id, g.starts_at`

	OfferedSublineJoins = `sublines s
		JOIN lines l ON l.id = s.line_id
		JOIN line_categories c ON c.id = l.category_id
		JOIN players p ON p.id = l.player_id
		JOIN games g ON g.id = l.game_id`
)

// ScanOfferedSubline scans one row selected with OfferedSublineColumns
func ScanOfferedSubline(row pgx.Row) (models.OfferedSubline, error) {
	var (
		o      models.OfferedSubline
		actual decimal.NullDecimal
	)
	err := row.Scan(
		&o.Subline.ID, &o.Subline.LineID, &o.Subline.ProjectedValue, &o.Subline.Visible, &o.Subline.CreatedAt,
		&o.Line.ID, &o.Line.PlayerID, &o.Line.GameID, &o.Line.CategoryID, &actual, &o.Line.Invalidated, &o.Line.CreatedAt,
		&o.Category.ID, &o.Category.LeagueID, &o.Category.Category, &o.Category.DisplayOrder,
		&o.Player.ID, &o.Player.TeamID, &o.Player.Name, &o.Player.HeadshotURL, &o.Player.Premier,
		&o.Game.ID, &o.Game.LeagueID, &o.Game.HomeTeamID, &o.Game.AwayTeamID, &o.Game.StartsAt,
	)
	o.Line.ActualValue = sqlutil.FromNullDecimal(actual)
	return o, err
}

func scanLine(row pgx.Row) (*models.Line, error) {
	var (
		l      models.Line
		actual decimal.NullDecimal
	)
	if err := row.Scan(&l.ID, &l.PlayerID, &l.GameID, &l.CategoryID, &actual, &l.Invalidated, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.ActualValue = sqlutil.FromNullDecimal(actual)
	return &l, nil
}
