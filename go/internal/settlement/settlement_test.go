package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func pick(projected string, actual *decimal.Decimal, invalidated, under bool) models.Pick {
	return models.Pick{
		ID:             uuid.New(),
		SublineID:      uuid.New(),
		Under:          under,
		ProjectedValue: decimal.RequireFromString(projected),
		ActualValue:    actual,
		Invalidated:    invalidated,
	}
}

// wonPick, lostPick and pendingPick build over picks with a known outcome.
func wonPick() models.Pick     { return pick("10.5", dec("12"), false, false) }
func lostPick() models.Pick    { return pick("10.5", dec("8"), false, false) }
func pendingPick() models.Pick { return pick("10.5", nil, false, false) }

func TestPickOutcome(t *testing.T) {
	tests := []struct {
		name        string
		projected   string
		actual      *decimal.Decimal
		invalidated bool
		under       bool
		want        Outcome
	}{
		{"no actual value", "20.5", nil, false, false, OutcomePending},
		{"no actual value under", "20.5", nil, false, true, OutcomePending},
		{"over above", "20.5", dec("22"), false, false, OutcomeWon},
		{"over below", "20.5", dec("19"), false, false, OutcomeLost},
		{"under below", "20.5", dec("19"), false, true, OutcomeWon},
		{"under above", "20.5", dec("22"), false, true, OutcomeLost},
		{"over exact", "20", dec("20"), false, false, OutcomeLost},
		{"under exact", "20", dec("20"), false, true, OutcomeLost},
		{"invalidated with value", "20.5", dec("30"), true, false, OutcomeLost},
		{"invalidated without value", "20.5", nil, true, true, OutcomeLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PickOutcome(decimal.RequireFromString(tt.projected), tt.actual, tt.invalidated, tt.under)
			if got != tt.want {
				t.Errorf("PickOutcome() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWonTruthTable(t *testing.T) {
	tests := []struct {
		name  string
		picks []models.Pick
		want  Outcome
	}{
		{"all won", []models.Pick{wonPick(), wonPick()}, OutcomeWon},
		{"one lost", []models.Pick{wonPick(), lostPick()}, OutcomeLost},
		{"one pending", []models.Pick{wonPick(), pendingPick()}, OutcomePending},
		{"lost and pending", []models.Pick{lostPick(), pendingPick()}, OutcomePending},
		{"five won", []models.Pick{wonPick(), wonPick(), wonPick(), wonPick(), wonPick()}, OutcomeWon},
		{"empty", nil, OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Won(tt.picks); got != tt.want {
				t.Errorf("Won() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullActualValueKeepsSlipIncomplete(t *testing.T) {
	picks := []models.Pick{wonPick(), pendingPick(), pick("3.5", nil, false, true)}

	if Complete(picks) {
		t.Fatalf("slip with missing actual values reported complete")
	}
	for _, p := range picks[1:] {
		if got := OutcomeOf(p); got != OutcomePending {
			t.Errorf("pick on line without actual value = %v, want pending", got)
		}
	}
	if got := StateOf(picks); got != StatePending {
		t.Errorf("StateOf() = %v, want %v", got, StatePending)
	}
}

func TestInvalidatedLineForcesLossAndInvalidatesSlip(t *testing.T) {
	// Three picks on the same invalidated line spread across two slips.
	lineID := uuid.New()
	voided := func(under bool) models.Pick {
		p := pick("7.5", nil, true, under)
		p.LineID = lineID
		return p
	}

	slipA := []models.Pick{voided(false), wonPick()}
	slipB := []models.Pick{voided(true), voided(false), pendingPick()}

	for name, picks := range map[string][]models.Pick{"A": slipA, "B": slipB} {
		if !Invalidated(picks) {
			t.Errorf("slip %s: Invalidated() = false, want true", name)
		}
		if got := StateOf(picks); got != StateInvalidated {
			t.Errorf("slip %s: StateOf() = %v, want %v", name, got, StateInvalidated)
		}
		for _, p := range picks {
			if p.LineID == lineID && OutcomeOf(p) != OutcomeLost {
				t.Errorf("slip %s: pick on invalidated line = %v, want lost", name, OutcomeOf(p))
			}
		}
	}

	// Populating the actual value later changes nothing.
	for i := range slipB {
		if slipB[i].LineID == lineID {
			slipB[i].ActualValue = dec("20")
		}
	}
	if got := StateOf(slipB); got != StateInvalidated {
		t.Errorf("after actual value: StateOf() = %v, want %v", got, StateInvalidated)
	}
	for _, p := range slipB {
		if p.LineID == lineID && OutcomeOf(p) != OutcomeLost {
			t.Errorf("after actual value: pick = %v, want lost", OutcomeOf(p))
		}
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name  string
		picks []models.Pick
		want  State
	}{
		{"pending", []models.Pick{wonPick(), pendingPick()}, StatePending},
		{"settled won", []models.Pick{wonPick(), wonPick(), wonPick()}, StateSettledWon},
		{"settled lost", []models.Pick{wonPick(), lostPick()}, StateSettledLost},
		{"invalidated beats pending", []models.Pick{pick("1.5", nil, true, false), pendingPick()}, StateInvalidated},
		{"invalidated beats won", []models.Pick{pick("1.5", dec("3"), true, false), wonPick()}, StateInvalidated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StateOf(tt.picks)
			if got != tt.want {
				t.Errorf("StateOf() = %v, want %v", got, tt.want)
			}
			if got.Terminal() != (tt.want != StatePending) {
				t.Errorf("Terminal() = %v for %v", got.Terminal(), got)
			}
		})
	}
}

func TestPayoutTable(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		picks int
		want  int64
	}{
		{2, 30},
		{3, 60},
		{4, 100},
		{5, 200},
	}
	for _, tt := range tests {
		got, err := engine.Payout(10, tt.picks)
		if err != nil {
			t.Fatalf("Payout(10, %d) unexpected error: %v", tt.picks, err)
		}
		if !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("Payout(10, %d) = %s, want %d", tt.picks, got, tt.want)
		}
	}

	for _, n := range []int{0, 1, 6} {
		_, err := engine.Payout(10, n)
		if !apperr.IsInconsistency(err) {
			t.Errorf("Payout(10, %d) error = %v, want InconsistencyError", n, err)
		}
	}
}

func TestTableIsACopy(t *testing.T) {
	engine := NewEngine(map[int]int{2: 4})
	table := engine.Table()
	if len(table) != 1 || table[2] != 4 {
		t.Fatalf("Table() = %v", table)
	}
	table[2] = 100
	if engine.Table()[2] != 4 {
		t.Error("mutating the returned table changed the engine")
	}
}

func TestEvaluate(t *testing.T) {
	engine := NewEngine(nil)
	slip := models.Slip{
		ID:          uuid.New(),
		EntryAmount: 5,
		Picks:       []models.Pick{wonPick(), wonPick(), pendingPick()},
	}

	ev, err := engine.Evaluate(slip)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if ev.Complete || ev.Invalidated {
		t.Errorf("complete=%v invalidated=%v, want false/false", ev.Complete, ev.Invalidated)
	}
	if ev.Won != OutcomePending || ev.State != StatePending {
		t.Errorf("won=%v state=%v, want pending/pending", ev.Won, ev.State)
	}
	if !ev.PayoutAmount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("payout = %s, want 30", ev.PayoutAmount)
	}
	if len(ev.Picks) != 3 || ev.Picks[0].Won != OutcomeWon || ev.Picks[2].Won != OutcomePending {
		t.Errorf("unexpected pick results: %+v", ev.Picks)
	}

	slip.Picks = slip.Picks[:1]
	if _, err := engine.Evaluate(slip); !apperr.IsInconsistency(err) {
		t.Errorf("Evaluate() on single-pick slip error = %v, want InconsistencyError", err)
	}
}

func TestOutcomeMarshalText(t *testing.T) {
	b, err := OutcomePending.MarshalText()
	if err != nil || string(b) != "pending" {
		t.Fatalf("MarshalText() = %q, %v", b, err)
	}
}
