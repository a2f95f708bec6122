package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
)

// Tx is the write surface available while a user row is locked
type Tx interface {
	SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error
	InsertDeposit(ctx context.Context, deposit models.Deposit) (*models.Deposit, error)
}

// WalletRepository defines what the app layer needs from the repository
type WalletRepository interface {
	// WithinUserLock runs fn in one transaction holding the user's row lock.
	WithinUserLock(ctx context.Context, userID uuid.UUID, fn func(tx Tx, user *models.User) error) error
	ResetFreeToPlayBalances(ctx context.Context, topOff decimal.Decimal) (int64, error)
}

// App is the wallet ledger. It is the only writer of user balances outside
// slip creation, which debits through DebitBalance inside its own lock.
type App struct {
	repo   WalletRepository
	policy Policy
}

// NewApp creates a new wallet App
func NewApp(repo WalletRepository, policy Policy) *App {
	return &App{
		repo:   repo,
		policy: policy,
	}
}

// Policy returns the wallet rules in force
func (a *App) Policy() Policy {
	return a.policy
}

// Debit removes amount from the user's balance, rejecting overdrafts.
func (a *App) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := a.repo.WithinUserLock(ctx, userID, func(tx Tx, user *models.User) error {
		next, err := DebitBalance(user.WalletBalance, amount)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, userID, next); err != nil {
			return err
		}
		balance = next
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("amount", amount.StringFixed(balanceScale)).
		Str("balance", balance.StringFixed(balanceScale)).
		Msg("wallet debited")
	return balance, nil
}

// Credit adds a positive amount to the user's balance.
func (a *App) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := a.repo.WithinUserLock(ctx, userID, func(tx Tx, user *models.User) error {
		next, err := CreditBalance(user.WalletBalance, amount)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, userID, next); err != nil {
			return err
		}
		balance = next
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("amount", amount.StringFixed(balanceScale)).
		Str("balance", balance.StringFixed(balanceScale)).
		Msg("wallet credited")
	return balance, nil
}

// Adjust applies a manual correction through Credit or Debit and returns the
// new balance.
func (a *App) Adjust(ctx context.Context, userID uuid.UUID, req AdjustRequest) (decimal.Decimal, error) {
	if req.Amount.IsZero() {
		return decimal.Zero, apperr.Validation(apperr.CodeInvalidInput, "amount", "adjustment must be non-zero")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return decimal.Zero, apperr.Validation(apperr.CodeInvalidInput, "reason", "reason is required")
	}
	log.Info().Str("user_id", userID.String()).Str("reason", req.Reason).Msg("manual wallet adjustment")
	if req.Amount.IsPositive() {
		return a.Credit(ctx, userID, req.Amount)
	}
	return a.Debit(ctx, userID, req.Amount.Neg())
}

// RecordDeposit credits the wallet and stores the deposit with its audit
// blobs in the same transaction.
func (a *App) RecordDeposit(ctx context.Context, userID uuid.UUID, req RecordDepositRequest) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := a.repo.WithinUserLock(ctx, userID, func(tx Tx, user *models.User) error {
		next, err := CreditBalance(user.WalletBalance, req.Amount)
		if err != nil {
			return err
		}
		deposit, err = tx.InsertDeposit(ctx, models.Deposit{
			ID:                uuid.New(),
			UserID:            userID,
			Amount:            req.Amount,
			TransactionDetail: rawBlob(req.TransactionDetail),
			OrderDetail:       rawBlob(req.OrderDetail),
		})
		if err != nil {
			return fmt.Errorf("failed to insert deposit: %w", err)
		}
		return tx.SetBalance(ctx, userID, next)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("deposit_id", deposit.ID.String()).
		Str("amount", deposit.Amount.StringFixed(balanceScale)).
		Msg("deposit recorded")
	return deposit, nil
}

// ResetFreeToPlayBalances overwrites every free-to-play balance with the
// configured top-off. It is not additive, so re-running it is harmless.
func (a *App) ResetFreeToPlayBalances(ctx context.Context) (int64, error) {
	if a.policy.FreeToPlayTopOff.IsNegative() {
		return 0, apperr.Inconsistency("free-to-play top-off %s is negative", a.policy.FreeToPlayTopOff)
	}

	n, err := a.repo.ResetFreeToPlayBalances(ctx, a.policy.FreeToPlayTopOff)
	if err != nil {
		return 0, fmt.Errorf("failed to reset free-to-play balances: %w", err)
	}

	log.Info().
		Int64("accounts", n).
		Str("top_off", a.policy.FreeToPlayTopOff.StringFixed(balanceScale)).
		Msg("reset free-to-play balances")
	return n, nil
}

func rawBlob(b []byte) pqtype.NullRawMessage {
	if len(b) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: b, Valid: true}
}
