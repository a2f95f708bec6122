package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/settlement"
	"github.com/shopspring/decimal"
)

// EventResultsReady is the outbox event type for a user's daily results.
const EventResultsReady = "results_ready"

// OutboxEvent is one row of the notification outbox
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// ResultsPayload is what the mail collaborator receives for one user and day
type ResultsPayload struct {
	UserID      uuid.UUID       `json:"user_id"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	Day         string          `json:"day"`
	Slips       []SlipResult    `json:"slips"`
	TotalPayout decimal.Decimal `json:"total_payout"`
}

// SlipResult is one settled slip inside a ResultsPayload
type SlipResult struct {
	SlipID      uuid.UUID        `json:"slip_id"`
	State       settlement.State `json:"state"`
	EntryAmount int              `json:"entry_amount"`
	Payout      decimal.Decimal  `json:"payout"`
	FreeToPlay  bool             `json:"free_to_play"`
}

// NotifyResult summarizes one NotifyUsersOfResults run
type NotifyResult struct {
	Day           string  `json:"day"`
	SlipsRead     int     `json:"slips_read"`
	Users         int     `json:"users"`
	Queued        int     `json:"queued"`
	AlreadyQueued int     `json:"already_queued"`
	Errors        []error `json:"-"`
}
