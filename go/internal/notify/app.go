package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/settlement"
	"github.com/mcdev12/underline/go/internal/slips"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// resultsNamespace scopes deterministic results event IDs.
var resultsNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("underline/notifications/results"))

// OutboxRepository defines what the app layer needs to enqueue events
type OutboxRepository interface {
	// InsertEvent stores the event unless its ID already exists. It reports
	// whether a row was inserted.
	InsertEvent(ctx context.Context, event OutboxEvent) (bool, error)
}

// SlipSource lists evaluated slips by creation day
type SlipSource interface {
	SlipsForDay(ctx context.Context, date time.Time) ([]slips.SlipView, error)
}

// UserSource resolves notification recipients
type UserSource interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// App builds result notifications and queues them in the outbox. It only
// reads slips.
type App struct {
	repo  OutboxRepository
	slips SlipSource
	users UserSource
}

// NewApp creates a new notify App
func NewApp(repo OutboxRepository, slips SlipSource, users UserSource) *App {
	return &App{
		repo:  repo,
		slips: slips,
		users: users,
	}
}

// ResultsEventID is the outbox ID for a user's results on day. Queuing the
// same user and day twice yields the same ID, so re-runs insert nothing.
func ResultsEventID(userID uuid.UUID, day time.Time) uuid.UUID {
	return uuid.NewSHA1(resultsNamespace, []byte(userID.String()+"|"+day.Format(systemdate.DateLayout)))
}

// NotifyUsersOfResults queues one results event per user with settled or
// invalidated slips created on day. Users whose slips are all still pending
// are skipped. A failure for one user does not stop the others.
func (a *App) NotifyUsersOfResults(ctx context.Context, day time.Time) (*NotifyResult, error) {
	views, err := a.slips.SlipsForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read slips: %w", err)
	}

	result := &NotifyResult{Day: day.Format(systemdate.DateLayout), SlipsRead: len(views)}

	byUser := make(map[uuid.UUID][]SlipResult)
	for _, v := range views {
		if !v.Evaluation.State.Terminal() {
			continue
		}
		byUser[v.Slip.UserID] = append(byUser[v.Slip.UserID], SlipResult{
			SlipID:      v.Slip.ID,
			State:       v.Evaluation.State,
			EntryAmount: v.Slip.EntryAmount,
			Payout:      payoutFor(v),
			FreeToPlay:  v.Slip.FreeToPlay,
		})
	}
	result.Users = len(byUser)

	userIDs := make([]uuid.UUID, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i].String() < userIDs[j].String() })

	for _, userID := range userIDs {
		inserted, err := a.queueResults(ctx, userID, day, byUser[userID])
		if err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to queue results notification")
			result.Errors = append(result.Errors, err)
			continue
		}
		if inserted {
			result.Queued++
		} else {
			result.AlreadyQueued++
		}
	}

	log.Info().
		Str("day", result.Day).
		Int("slips", result.SlipsRead).
		Int("users", result.Users).
		Int("queued", result.Queued).
		Int("already_queued", result.AlreadyQueued).
		Int("errors", len(result.Errors)).
		Msg("queued results notifications")
	return result, nil
}

func (a *App) queueResults(ctx context.Context, userID uuid.UUID, day time.Time, results []SlipResult) (bool, error) {
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.Payout)
	}

	payload, err := json.Marshal(ResultsPayload{
		UserID:      userID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		Day:         day.Format(systemdate.DateLayout),
		Slips:       results,
		TotalPayout: total,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal results payload: %w", err)
	}

	return a.repo.InsertEvent(ctx, OutboxEvent{
		ID:        ResultsEventID(userID, day),
		UserID:    userID,
		EventType: EventResultsReady,
		Payload:   payload,
	})
}

// payoutFor is the amount a settled slip returns; only winners pay.
func payoutFor(v slips.SlipView) decimal.Decimal {
	if v.Evaluation.State == settlement.StateSettledWon {
		return v.Evaluation.PayoutAmount
	}
	return decimal.Zero
}
