package settlement

import (
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/shopspring/decimal"
)

// DefaultMultipliers is the payout table keyed by pick count.
var DefaultMultipliers = map[int]int{
	2: 3,
	3: 6,
	4: 10,
	5: 20,
}

// Engine evaluates slips against a payout table.
type Engine struct {
	multipliers map[int]int
}

// NewEngine builds an engine. A nil or empty table falls back to DefaultMultipliers.
func NewEngine(multipliers map[int]int) *Engine {
	if len(multipliers) == 0 {
		multipliers = DefaultMultipliers
	}
	table := make(map[int]int, len(multipliers))
	for k, v := range multipliers {
		table[k] = v
	}
	return &Engine{multipliers: table}
}

// Table returns a copy of the payout table.
func (e *Engine) Table() map[int]int {
	table := make(map[int]int, len(e.multipliers))
	for k, v := range e.multipliers {
		table[k] = v
	}
	return table
}

// ValidPickCount reports whether the payout table covers the count.
func (e *Engine) ValidPickCount(pickCount int) bool {
	_, ok := e.multipliers[pickCount]
	return ok
}

// Payout is entry × multiplier. Pick counts outside the table are an
// invariant violation upstream, never a silent zero.
func (e *Engine) Payout(entryAmount, pickCount int) (decimal.Decimal, error) {
	m, ok := e.multipliers[pickCount]
	if !ok {
		return decimal.Zero, apperr.Inconsistency("no payout defined for %d picks", pickCount)
	}
	return decimal.NewFromInt(int64(entryAmount) * int64(m)), nil
}
