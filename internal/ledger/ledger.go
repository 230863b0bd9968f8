// Package ledger applies balance changes to wallets. Every change writes the
// wallet balance and appends an AccountTransaction in the caller's transaction.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/model"
)

// MoneyPlaces is the number of fractional digits allowed in an amount.
const MoneyPlaces = 2

// Store is the subset of a transaction the ledger needs.
type Store interface {
	GetWalletForUpdate(ctx context.Context, walletID int64) (*model.Wallet, error)
	UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal, at time.Time) error
	InsertTransaction(ctx context.Context, t *model.AccountTransaction) (int64, error)
}

// Entry describes one balance change.
type Entry struct {
	WalletID  int64
	Type      model.EntryType
	Direction model.Direction
	Amount    decimal.Decimal
	RefCode   string
	Note      string
	At        time.Time
}

// NewEntry builds an entry whose direction follows DirectionFor(entryType).
func NewEntry(walletID int64, entryType model.EntryType, amount decimal.Decimal, refCode, note string, at time.Time) Entry {
	return Entry{
		WalletID:  walletID,
		Type:      entryType,
		Direction: DirectionFor(entryType),
		Amount:    amount,
		RefCode:   refCode,
		Note:      note,
		At:        at,
	}
}

// DirectionFor returns the direction every entry of the given type uses.
// Money coming into the wallet is a CREDIT.
func DirectionFor(t model.EntryType) model.Direction {
	switch t {
	case model.EntryDeposit, model.EntryPrize, model.EntryRefund:
		return model.Credit
	default:
		return model.Debit
	}
}

// ValidateAmount checks that amount is positive and has at most MoneyPlaces fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be positive", model.ErrInvalidAmount)
	}
	if !amount.Equal(amount.Truncate(MoneyPlaces)) {
		return fmt.Errorf("%w: at most %d decimal places", model.ErrInvalidAmount, MoneyPlaces)
	}
	return nil
}

// Apply locks the wallet and records the entry. It does not check that a
// debit leaves a non-negative balance; use Spend for that.
func Apply(ctx context.Context, s Store, e Entry) (*model.Wallet, *model.AccountTransaction, error) {
	if err := ValidateAmount(e.Amount); err != nil {
		return nil, nil, err
	}

	w, err := s.GetWalletForUpdate(ctx, e.WalletID)
	if err != nil {
		return nil, nil, err
	}

	return apply(ctx, s, w, e)
}

// Spend is Apply for debits that must be covered by the current balance.
// The balance check happens under the same row lock as the update.
func Spend(ctx context.Context, s Store, e Entry) (*model.Wallet, *model.AccountTransaction, error) {
	if err := ValidateAmount(e.Amount); err != nil {
		return nil, nil, err
	}

	w, err := s.GetWalletForUpdate(ctx, e.WalletID)
	if err != nil {
		return nil, nil, err
	}

	if e.Direction == model.Debit && w.Balance.LessThan(e.Amount) {
		return nil, nil, model.ErrInsufficientFunds
	}

	return apply(ctx, s, w, e)
}

func apply(ctx context.Context, s Store, w *model.Wallet, e Entry) (*model.Wallet, *model.AccountTransaction, error) {
	var newBalance decimal.Decimal
	switch e.Direction {
	case model.Credit:
		newBalance = w.Balance.Add(e.Amount)
	case model.Debit:
		newBalance = w.Balance.Sub(e.Amount)
	default:
		return nil, nil, fmt.Errorf("unknown ledger direction %q", e.Direction)
	}

	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	t := &model.AccountTransaction{
		WalletID:     w.ID,
		EntryType:    e.Type,
		Direction:    e.Direction,
		Amount:       e.Amount,
		BalanceAfter: newBalance,
		RefCode:      e.RefCode,
		Note:         e.Note,
		OccurredAt:   at,
	}

	id, err := s.InsertTransaction(ctx, t)
	if err != nil {
		return nil, nil, fmt.Errorf("insert account transaction: %w", err)
	}
	t.ID = id

	if err := s.UpdateWalletBalance(ctx, w.ID, newBalance, at); err != nil {
		return nil, nil, fmt.Errorf("update wallet balance: %w", err)
	}

	updated := *w
	updated.Balance = newBalance
	updated.UpdatedAt = at

	return &updated, t, nil
}
