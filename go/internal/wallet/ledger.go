package wallet

import (
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/shopspring/decimal"
)

// Balances carry two fractional digits.
const balanceScale = 2

// DebitBalance returns balance less amount. An overdraft is rejected with
// insufficient_funds and the balance is left as it was.
func DebitBalance(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount(amount); err != nil {
		return balance, err
	}
	next := balance.Sub(amount)
	if next.IsNegative() {
		return balance, apperr.Validation(apperr.CodeInsufficientFunds, "entry_amount",
			"balance %s does not cover %s", balance.StringFixed(balanceScale), amount.StringFixed(balanceScale))
	}
	return next, nil
}

// CreditBalance returns balance plus amount.
func CreditBalance(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount(amount); err != nil {
		return balance, err
	}
	return balance.Add(amount), nil
}

// CheckStakeCap rejects an entry that would take the day's staked total past
// the cap. Reaching the cap exactly is allowed.
func (p Policy) CheckStakeCap(stakedToday, entry int) error {
	if stakedToday+entry > p.StakeCap {
		return apperr.Validation(apperr.CodeStakeCapExceeded, "entry_amount",
			"%d already staked today, %d more exceeds the daily cap of %d", stakedToday, entry, p.StakeCap)
	}
	return nil
}

// CheckEntry validates a single slip's entry amount.
func (p Policy) CheckEntry(entry int) error {
	if entry <= 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "entry_amount", "entry amount must be positive")
	}
	if entry > p.MaxEntry {
		return apperr.Validation(apperr.CodeEntryTooLarge, "entry_amount", "entry amount %d exceeds the maximum of %d", entry, p.MaxEntry)
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation(apperr.CodeInvalidInput, "amount", "amount must be positive")
	}
	if !amount.Equal(amount.Round(balanceScale)) {
		return apperr.Validation(apperr.CodeInvalidInput, "amount", "amount has more than %d decimal places", balanceScale)
	}
	return nil
}
