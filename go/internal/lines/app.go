package lines

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LinesRepository defines what the app layer needs from the repository
type LinesRepository interface {
	CreateLine(ctx context.Context, req CreateLineRequest) (*models.Line, error)
	GetLine(ctx context.Context, id uuid.UUID) (*models.Line, error)
	GetLineByKey(ctx context.Context, playerID, gameID, categoryID uuid.UUID) (*models.Line, error)
	SetActualValue(ctx context.Context, id uuid.UUID, value decimal.Decimal) error
	InvalidateLine(ctx context.Context, id uuid.UUID) error
	CreateSubline(ctx context.Context, lineID uuid.UUID, projected decimal.Decimal) (*models.Subline, error)
	ListOfferedSublines(ctx context.Context, start, end time.Time) ([]models.OfferedSubline, error)
	HideSublinesStartedBy(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// SystemDate supplies the business "today".
type SystemDate interface {
	Today(ctx context.Context) (time.Time, error)
	DayWindow(date time.Time) systemdate.Window
}

type PlayerApp interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ResolvePlayer(ctx context.Context, name string) (*models.Player, error)
}

type GameApp interface {
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	GameForTeamOnDate(ctx context.Context, teamID uuid.UUID, date time.Time) (*models.Game, error)
}

type CategoryApp interface {
	GetLineCategory(ctx context.Context, id uuid.UUID) (*models.LineCategory, error)
	GetLineCategoryByName(ctx context.Context, leagueID uuid.UUID, category string) (*models.LineCategory, error)
}

// Broadcaster pushes board changes to connected lobby clients.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, any) {}

// App is the line engine: it owns what is on the board and writes final
// statistics onto lines.
type App struct {
	repo       LinesRepository
	systemDate SystemDate
	players    PlayerApp
	games      GameApp
	categories CategoryApp
	clock      clockwork.Clock
	lobby      Broadcaster
}

// NewApp creates a new lines App. A nil lobby disables broadcasts.
func NewApp(
	repo LinesRepository,
	systemDate SystemDate,
	players PlayerApp,
	games GameApp,
	categories CategoryApp,
	clock clockwork.Clock,
	lobby Broadcaster,
) *App {
	if lobby == nil {
		lobby = nopBroadcaster{}
	}
	return &App{
		repo:       repo,
		systemDate: systemDate,
		players:    players,
		games:      games,
		categories: categories,
		clock:      clock,
		lobby:      lobby,
	}
}

// TodaysSublines lists the offerable sublines for the system date: visible,
// on a line that is not invalidated, for a game on that calendar day.
// Premier players come first and each group is ordered by game start.
func (a *App) TodaysSublines(ctx context.Context) ([]models.OfferedSubline, error) {
	today, err := a.systemDate.Today(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read system date: %w", err)
	}

	w := a.systemDate.DayWindow(today)
	offered, err := a.repo.ListOfferedSublines(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list offered sublines: %w", err)
	}
	return orderOffered(offered), nil
}

// orderOffered is a stable concatenation of the premier and non-premier
// subsequences, each sorted by game start.
func orderOffered(offered []models.OfferedSubline) []models.OfferedSubline {
	sorted := make([]models.OfferedSubline, len(offered))
	copy(sorted, offered)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Game.StartsAt.Before(sorted[j].Game.StartsAt)
	})

	out := make([]models.OfferedSubline, 0, len(sorted))
	for _, o := range sorted {
		if o.Player.Premier {
			out = append(out, o)
		}
	}
	for _, o := range sorted {
		if !o.Player.Premier {
			out = append(out, o)
		}
	}
	return out
}

// HideSublinesForStartedGames takes every visible subline off the board once
// its game's start minute has arrived on the wall clock. Re-running it hides
// nothing new.
func (a *App) HideSublinesForStartedGames(ctx context.Context) (*SweepResult, error) {
	cutoff := a.clock.Now().Truncate(time.Minute)

	hidden, err := a.repo.HideSublinesStartedBy(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to hide sublines: %w", err)
	}

	result := &SweepResult{Cutoff: cutoff, Hidden: hidden}
	if len(hidden) > 0 {
		log.Info().
			Time("cutoff", cutoff).
			Int("hidden", len(hidden)).
			Msg("hid sublines for started games")
		a.lobby.Broadcast(EventSublinesHidden, result)
	}
	return result, nil
}

// IngestFinalStatistics writes final values onto the system date's lines.
// Each record resolves player, then the player's game that day, then the line
// for the category. Failures are recorded per record and the batch continues.
// All writes are set-to-value so re-running a batch changes nothing.
func (a *App) IngestFinalStatistics(ctx context.Context, records []StatRecord) (*IngestResult, error) {
	today, err := a.systemDate.Today(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read system date: %w", err)
	}

	result := &IngestResult{Date: today, TotalProcessed: len(records)}
	for i, rec := range records {
		outcome, err := a.ingestRecord(ctx, today, rec)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Str("name", rec.PlayerName).Str("category", rec.Category).Msg("statistic not applied")
			result.Errors = append(result.Errors, &RecordError{
				Index:      i,
				PlayerName: rec.PlayerName,
				Category:   rec.Category,
				Message:    err.Error(),
				Err:        err,
			})
			continue
		}
		switch outcome {
		case recordUpdated:
			result.Updated++
		case recordInvalidated:
			result.Invalidated++
		default:
			result.Unchanged++
		}
	}

	log.Info().
		Str("date", today.Format(systemdate.DateLayout)).
		Int("total", result.TotalProcessed).
		Int("updated", result.Updated).
		Int("invalidated", result.Invalidated).
		Int("unchanged", result.Unchanged).
		Int("errors", len(result.Errors)).
		Msg("ingested final statistics")

	if result.Updated > 0 || result.Invalidated > 0 {
		a.lobby.Broadcast(EventStatisticsIngested, result)
	}
	return result, nil
}

type recordOutcome int

const (
	recordUnchanged recordOutcome = iota
	recordUpdated
	recordInvalidated
)

func (a *App) ingestRecord(ctx context.Context, today time.Time, rec StatRecord) (recordOutcome, error) {
	if strings.TrimSpace(rec.Category) == "" {
		return 0, apperr.Validation(apperr.CodeInvalidInput, "category", "category is required")
	}
	if !rec.DidNotPlay {
		if rec.ActualValue == nil {
			return 0, apperr.Validation(apperr.CodeInvalidInput, "actual_value", "actual_value is required unless did_not_play is set")
		}
		if rec.ActualValue.IsNegative() {
			return 0, apperr.Validation(apperr.CodeInvalidInput, "actual_value", "actual_value must not be negative")
		}
	}

	player, err := a.players.ResolvePlayer(ctx, rec.PlayerName)
	if err != nil {
		return 0, err
	}
	game, err := a.games.GameForTeamOnDate(ctx, player.TeamID, today)
	if err != nil {
		return 0, err
	}
	category, err := a.categories.GetLineCategoryByName(ctx, game.LeagueID, rec.Category)
	if err != nil {
		return 0, err
	}
	line, err := a.repo.GetLineByKey(ctx, player.ID, game.ID, category.ID)
	if err != nil {
		return 0, err
	}

	if rec.DidNotPlay {
		if line.Invalidated {
			return recordUnchanged, nil
		}
		if err := a.repo.InvalidateLine(ctx, line.ID); err != nil {
			return 0, err
		}
		return recordInvalidated, nil
	}

	if line.ActualValue != nil && line.ActualValue.Equal(*rec.ActualValue) {
		return recordUnchanged, nil
	}
	if err := a.repo.SetActualValue(ctx, line.ID, *rec.ActualValue); err != nil {
		return 0, err
	}
	return recordUpdated, nil
}

// CreateLine starts tracking a statistic for a player in a game. Creating an
// existing triple returns the existing line.
func (a *App) CreateLine(ctx context.Context, req CreateLineRequest) (*models.Line, error) {
	player, err := a.players.GetPlayer(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	game, err := a.games.GetGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	category, err := a.categories.GetLineCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	if !game.Involves(player.TeamID) {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "game_id", "%s's team does not play in game %s", player.Name, game.ID)
	}
	if category.LeagueID != game.LeagueID {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "category_id", "category %s belongs to another league", category.Category)
	}

	line, err := a.repo.CreateLine(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create line: %w", err)
	}

	log.Info().
		Str("line_id", line.ID.String()).
		Str("player", player.Name).
		Str("category", category.Category).
		Msg("created line")
	return line, nil
}

// CreateSubline offers a new projection. Any earlier visible projection on
// the same line is hidden so only the current offer remains on the board.
func (a *App) CreateSubline(ctx context.Context, req CreateSublineRequest) (*models.Subline, error) {
	if req.ProjectedValue.IsNegative() {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "projected_value", "projected_value must not be negative")
	}

	line, err := a.repo.GetLine(ctx, req.LineID)
	if err != nil {
		return nil, err
	}
	if line.Invalidated {
		return nil, apperr.Validation(apperr.CodeSublineUnavailable, "line_id", "line %s is invalidated", line.ID)
	}
	game, err := a.games.GetGame(ctx, line.GameID)
	if err != nil {
		return nil, err
	}
	if game.Started(a.clock.Now()) {
		return nil, apperr.Validation(apperr.CodeSublineUnavailable, "line_id", "game %s has already started", game.ID)
	}

	sub, err := a.repo.CreateSubline(ctx, line.ID, req.ProjectedValue)
	if err != nil {
		return nil, fmt.Errorf("failed to create subline: %w", err)
	}

	log.Info().
		Str("line_id", line.ID.String()).
		Str("subline_id", sub.ID.String()).
		Str("projected_value", sub.ProjectedValue.String()).
		Msg("offered subline")
	a.lobby.Broadcast(EventSublineOffered, sub)
	return sub, nil
}

// InvalidateLine voids a line and pulls its sublines from the board. Picks on
// it lose and their slips report invalidated.
func (a *App) InvalidateLine(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.InvalidateLine(ctx, id); err != nil {
		return fmt.Errorf("failed to invalidate line: %w", err)
	}
	log.Warn().Str("line_id", id.String()).Msg("line invalidated")
	return nil
}
