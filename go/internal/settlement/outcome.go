// Package settlement derives pick and slip outcomes from persisted line state.
// Everything here is a pure function of its inputs and is recomputed on every
// read; nothing is cached or written back.
package settlement

import (
	"fmt"

	"github.com/mcdev12/underline/go/internal/models"
	"github.com/shopspring/decimal"
)

// Outcome is the tri-state result of a pick or a slip. Pending means the
// result is not yet known and must never be read as a loss.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeWon
	OutcomeLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText renders the outcome as its lowercase name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// PickOutcome decides a single pick.
//
// An invalidated line forces a loss whatever its actual value. A missing
// actual value leaves the pick pending. Otherwise an under pick wins when the
// actual value is strictly below the projection and an over pick wins when it
// is strictly above; landing exactly on the projection loses either way.
func PickOutcome(projected decimal.Decimal, actual *decimal.Decimal, invalidated, under bool) Outcome {
	if invalidated {
		return OutcomeLost
	}
	if actual == nil {
		return OutcomePending
	}
	var won bool
	if under {
		won = actual.LessThan(projected)
	} else {
		won = actual.GreaterThan(projected)
	}
	if won {
		return OutcomeWon
	}
	return OutcomeLost
}

// OutcomeOf decides a pick from its loaded line snapshot.
func OutcomeOf(p models.Pick) Outcome {
	return PickOutcome(p.ProjectedValue, p.ActualValue, p.Invalidated, p.Under)
}

// Complete reports whether every pick's line has a final actual value.
func Complete(picks []models.Pick) bool {
	for _, p := range picks {
		if p.ActualValue == nil {
			return false
		}
	}
	return true
}

// Invalidated reports whether any pick's line has been voided.
func Invalidated(picks []models.Pick) bool {
	for _, p := range picks {
		if p.Invalidated {
			return true
		}
	}
	return false
}

// Won folds pick outcomes with parlay semantics: any pending pick keeps the
// slip pending, otherwise the slip wins only if every pick won.
func Won(picks []models.Pick) Outcome {
	if len(picks) == 0 {
		return OutcomePending
	}
	result := OutcomeWon
	for _, p := range picks {
		switch OutcomeOf(p) {
		case OutcomePending:
			return OutcomePending
		case OutcomeLost:
			result = OutcomeLost
		}
	}
	return result
}
