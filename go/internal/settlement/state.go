package settlement

import (
	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/shopspring/decimal"
)

// State is a slip's lifecycle position. Invalidated, SettledWon and
// SettledLost are terminal; transitions happen only because line facts change.
type State string

const (
	StatePending     State = "pending"
	StateInvalidated State = "invalidated"
	StateSettledWon  State = "settled_won"
	StateSettledLost State = "settled_lost"
)

// Terminal reports whether no further line mutation can change the state.
func (s State) Terminal() bool {
	return s != StatePending
}

// StateOf derives the lifecycle state from the slip's picks.
func StateOf(picks []models.Pick) State {
	if Invalidated(picks) {
		return StateInvalidated
	}
	if !Complete(picks) {
		return StatePending
	}
	if Won(picks) == OutcomeWon {
		return StateSettledWon
	}
	return StateSettledLost
}

// PickResult is a pick with its derived outcome.
type PickResult struct {
	PickID    uuid.UUID `json:"pick_id"`
	SublineID uuid.UUID `json:"subline_id"`
	Under     bool      `json:"under"`
	Won       Outcome   `json:"won"`
}

// Evaluation is the full derived view of a slip.
type Evaluation struct {
	SlipID       uuid.UUID       `json:"slip_id"`
	Complete     bool            `json:"complete"`
	Invalidated  bool            `json:"invalidated"`
	Won          Outcome         `json:"won"`
	State        State           `json:"state"`
	PayoutAmount decimal.Decimal `json:"payout_amount"`
	Picks        []PickResult    `json:"picks"`
}

// Evaluate derives every settlement property of a slip. It fails with an
// InconsistencyError when the slip's pick count has no payout.
func (e *Engine) Evaluate(slip models.Slip) (*Evaluation, error) {
	payout, err := e.Payout(slip.EntryAmount, len(slip.Picks))
	if err != nil {
		return nil, err
	}

	picks := make([]PickResult, len(slip.Picks))
	for i, p := range slip.Picks {
		picks[i] = PickResult{
			PickID:    p.ID,
			SublineID: p.SublineID,
			Under:     p.Under,
			Won:       OutcomeOf(p),
		}
	}

	return &Evaluation{
		SlipID:       slip.ID,
		Complete:     Complete(slip.Picks),
		Invalidated:  Invalidated(slip.Picks),
		Won:          Won(slip.Picks),
		State:        StateOf(slip.Picks),
		PayoutAmount: payout,
		Picks:        picks,
	}, nil
}
