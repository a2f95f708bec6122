package slips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/settlement"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/mcdev12/underline/go/internal/wallet"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Tx is the read/write surface available while the owner's row is locked
type Tx interface {
	GetSublines(ctx context.Context, ids []uuid.UUID) ([]models.OfferedSubline, error)
	SumStakes(ctx context.Context, userID uuid.UUID, businessDate time.Time) (int, error)
	InsertSlip(ctx context.Context, slip models.Slip) error
	SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error
}

// SlipsRepository defines what the app layer needs from the repository
type SlipsRepository interface {
	// WithinUserLock runs fn in one transaction holding the user's row lock.
	WithinUserLock(ctx context.Context, userID uuid.UUID, fn func(tx Tx, user *models.User) error) error
	ListSlipsForUser(ctx context.Context, userID uuid.UUID) ([]models.Slip, error)
	ListSlipsForBusinessDate(ctx context.Context, businessDate time.Time) ([]models.Slip, error)
}

// SystemDate supplies the business "today" and its stake window.
type SystemDate interface {
	Today(ctx context.Context) (time.Time, error)
	BusinessDay(date time.Time) systemdate.Window
}

// Metrics records slip placement outcomes
type Metrics interface {
	SlipCreated(freeToPlay bool, pickCount int)
	SlipRejected(code string)
}

type nopMetrics struct{}

func (nopMetrics) SlipCreated(bool, int) {}
func (nopMetrics) SlipRejected(string)   {}

// App handles slip placement and slip reads
type App struct {
	repo       SlipsRepository
	systemDate SystemDate
	engine     *settlement.Engine
	policy     wallet.Policy
	clock      clockwork.Clock
	metrics    Metrics
}

// NewApp creates a new slips App. A nil metrics disables recording.
func NewApp(
	repo SlipsRepository,
	systemDate SystemDate,
	engine *settlement.Engine,
	policy wallet.Policy,
	clock clockwork.Clock,
	metrics Metrics,
) *App {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &App{
		repo:       repo,
		systemDate: systemDate,
		engine:     engine,
		policy:     policy,
		clock:      clock,
		metrics:    metrics,
	}
}

// CreateSlip places a slip. Everything from the stake-cap read to the wallet
// debit happens under the user's row lock, so concurrent placements by one
// user cannot both pass the cap.
func (a *App) CreateSlip(ctx context.Context, userID uuid.UUID, req CreateSlipRequest) (*CreateSlipResult, error) {
	result, err := a.createSlip(ctx, userID, req)
	if err != nil {
		a.metrics.SlipRejected(rejectionCode(err))
		return nil, err
	}
	a.metrics.SlipCreated(result.FreeToPlay, len(req.Picks))
	return result, nil
}

func (a *App) createSlip(ctx context.Context, userID uuid.UUID, req CreateSlipRequest) (*CreateSlipResult, error) {
	if req.CreatorCode != nil {
		code := strings.TrimSpace(*req.CreatorCode)
		req.CreatorCode = &code
	}
	if err := a.validateCreateSlipRequest(req); err != nil {
		return nil, err
	}

	today, err := a.systemDate.Today(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read system date: %w", err)
	}
	window := a.systemDate.BusinessDay(today)

	ids := make([]uuid.UUID, len(req.Picks))
	for i, p := range req.Picks {
		ids[i] = p.SublineID
	}

	var result CreateSlipResult
	err = a.repo.WithinUserLock(ctx, userID, func(tx Tx, user *models.User) error {
		now := a.clock.Now()
		if !window.Contains(now) {
			return apperr.Validation(apperr.CodeOutsideBusinessDay, "picks",
				"slips for %s are accepted from %s to %s",
				today.Format(systemdate.DateLayout), window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
		}

		sublines, err := tx.GetSublines(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load sublines: %w", err)
		}
		byID, err := checkOfferable(ids, sublines, now)
		if err != nil {
			return err
		}

		staked, err := tx.SumStakes(ctx, userID, today)
		if err != nil {
			return fmt.Errorf("failed to sum stakes: %w", err)
		}
		if err := a.policy.CheckStakeCap(staked, req.EntryAmount); err != nil {
			return err
		}

		balance, err := wallet.DebitBalance(user.WalletBalance, decimal.NewFromInt(int64(req.EntryAmount)))
		if err != nil {
			return err
		}

		slip := models.Slip{
			ID:           uuid.New(),
			UserID:       userID,
			EntryAmount:  req.EntryAmount,
			FreeToPlay:   user.FreeToPlay,
			CreatorCode:  req.CreatorCode,
			BusinessDate: today,
			CreatedAt:    now,
			Picks:        make([]models.Pick, len(req.Picks)),
		}
		for i, p := range req.Picks {
			o := byID[p.SublineID]
			slip.Picks[i] = models.Pick{
				ID:             uuid.New(),
				SlipID:         slip.ID,
				SublineID:      p.SublineID,
				Under:          p.Under,
				ProjectedValue: o.Subline.ProjectedValue,
				LineID:         o.Line.ID,
			}
		}

		if err := tx.InsertSlip(ctx, slip); err != nil {
			return fmt.Errorf("failed to insert slip: %w", err)
		}
		if err := tx.SetBalance(ctx, userID, balance); err != nil {
			return err
		}

		result = CreateSlipResult{SlipID: slip.ID, FreeToPlay: slip.FreeToPlay}
		log.Info().
			Str("user_id", userID.String()).
			Str("slip_id", slip.ID.String()).
			Int("picks", len(slip.Picks)).
			Int("entry_amount", slip.EntryAmount).
			Int("staked_today", staked+slip.EntryAmount).
			Bool("free_to_play", slip.FreeToPlay).
			Msg("slip created")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// checkOfferable confirms every requested subline is on the board and that
// the picks span at least two teams.
func checkOfferable(ids []uuid.UUID, sublines []models.OfferedSubline, now time.Time) (map[uuid.UUID]models.OfferedSubline, error) {
	byID := make(map[uuid.UUID]models.OfferedSubline, len(sublines))
	for _, o := range sublines {
		byID[o.Subline.ID] = o
	}

	teams := make(map[uuid.UUID]struct{})
	for _, id := range ids {
		o, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("subline", id)
		}
		switch {
		case !o.Subline.Visible:
			return nil, apperr.Validation(apperr.CodeSublineUnavailable, "picks", "subline %s is no longer offered", id)
		case o.Line.Invalidated:
			return nil, apperr.Validation(apperr.CodeSublineUnavailable, "picks", "line for subline %s is invalidated", id)
		case o.Game.Started(now):
			return nil, apperr.Validation(apperr.CodeSublineUnavailable, "picks", "game for subline %s has started", id)
		}
		teams[o.Player.TeamID] = struct{}{}
	}

	if len(teams) < 2 {
		return nil, apperr.Validation(apperr.CodeSingleTeam, "picks", "picks must span at least two teams")
	}
	return byID, nil
}

func (a *App) validateCreateSlipRequest(req CreateSlipRequest) error {
	if !a.engine.ValidPickCount(len(req.Picks)) {
		return apperr.Validation(apperr.CodeInvalidPickCount, "picks", "a slip needs 2 to 5 picks, got %d", len(req.Picks))
	}
	if err := a.policy.CheckEntry(req.EntryAmount); err != nil {
		return err
	}

	seen := make(map[uuid.UUID]struct{}, len(req.Picks))
	for _, p := range req.Picks {
		if _, dup := seen[p.SublineID]; dup {
			return apperr.Validation(apperr.CodeDuplicatePick, "picks", "subline %s picked twice", p.SublineID)
		}
		seen[p.SublineID] = struct{}{}
	}

	if req.CreatorCode != nil {
		if code := *req.CreatorCode; code == "" || len(code) > MaxCreatorCodeLength {
			return apperr.Validation(apperr.CodeInvalidInput, "creator_code", "creator code must be 1 to %d characters", MaxCreatorCodeLength)
		}
	}
	return nil
}

// PendingSlips returns the user's slips that are still awaiting results
func (a *App) PendingSlips(ctx context.Context, userID uuid.UUID) ([]SlipView, error) {
	return a.userSlips(ctx, userID, func(s settlement.State) bool { return !s.Terminal() })
}

// SettledSlips returns the user's won, lost and invalidated slips
func (a *App) SettledSlips(ctx context.Context, userID uuid.UUID) ([]SlipView, error) {
	return a.userSlips(ctx, userID, settlement.State.Terminal)
}

func (a *App) userSlips(ctx context.Context, userID uuid.UUID, keep func(settlement.State) bool) ([]SlipView, error) {
	slips, err := a.repo.ListSlipsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slips: %w", err)
	}
	views := a.evaluate(slips)

	out := views[:0]
	for _, v := range views {
		if keep(v.Evaluation.State) {
			out = append(out, v)
		}
	}
	return out, nil
}

// SlipsForDay returns every slip placed on the business date, evaluated.
func (a *App) SlipsForDay(ctx context.Context, date time.Time) ([]SlipView, error) {
	slips, err := a.repo.ListSlipsForBusinessDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list slips for day: %w", err)
	}
	return a.evaluate(slips), nil
}

// evaluate derives state for each slip. A slip the engine cannot evaluate is
// logged and left out; it never fails the whole read.
func (a *App) evaluate(slips []models.Slip) []SlipView {
	views := make([]SlipView, 0, len(slips))
	for _, s := range slips {
		ev, err := a.engine.Evaluate(s)
		if err != nil {
			log.Error().Err(err).Str("slip_id", s.ID.String()).Msg("failed to evaluate slip")
			continue
		}
		views = append(views, SlipView{Slip: s, Evaluation: ev})
	}
	return views
}

func rejectionCode(err error) string {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	if apperr.IsNotFound(err) {
		return "not_found"
	}
	return "error"
}
