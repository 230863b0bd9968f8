package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/ledger"
	"github.com/amesupakorn/eLottery/internal/metrics"
	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/repository"
)

// GetWallet returns the wallet of userID.
func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	var w *model.Wallet
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		w, err = tx.GetWalletByUser(ctx, userID)
		return err
	})
	return w, err
}

// Deposit credits amount to the user's wallet.
func (s *Service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Wallet, *model.AccountTransaction, error) {
	now := s.now()
	return s.post(ctx, userID, func(tx repository.Tx, w *model.Wallet) (*model.Wallet, *model.AccountTransaction, error) {
		e := ledger.NewEntry(w.ID, model.EntryDeposit, amount, fmt.Sprintf("DEP-%d", now.UnixNano()), "Wallet deposit", now)
		return ledger.Apply(ctx, tx, e)
	})
}

// Withdraw debits amount from the user's wallet. The balance must cover it.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*model.Wallet, *model.AccountTransaction, error) {
	now := s.now()
	note := "Withdrawal"
	if m := strings.TrimSpace(method); m != "" {
		note = "Withdrawal via " + m
	}
	return s.post(ctx, userID, func(tx repository.Tx, w *model.Wallet) (*model.Wallet, *model.AccountTransaction, error) {
		e := ledger.NewEntry(w.ID, model.EntryWithdrawal, amount, fmt.Sprintf("WD-%d", now.UnixNano()), note, now)
		return ledger.Spend(ctx, tx, e)
	})
}

type postFunc func(tx repository.Tx, w *model.Wallet) (*model.Wallet, *model.AccountTransaction, error)

func (s *Service) post(ctx context.Context, userID int64, fn postFunc) (*model.Wallet, *model.AccountTransaction, error) {
	var (
		w  *model.Wallet
		at *model.AccountTransaction
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetWalletByUser(ctx, userID)
		if err != nil {
			return err
		}
		w, at, err = fn(tx, cur)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordLedgerEntry(string(at.EntryType))
	s.logger.Info("ledger entry posted",
		zap.Int64("user_id", userID),
		zap.String("type", string(at.EntryType)),
		zap.String("amount", at.Amount.StringFixed(2)),
		zap.String("ref", at.RefCode))
	return w, at, nil
}

// TransactionHistory lists ledger entries of the user's wallet, newest first.
func (s *Service) TransactionHistory(ctx context.Context, userID int64, f model.TransactionFilter) ([]model.AccountTransaction, error) {
	var res []model.AccountTransaction
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		w, err := tx.GetWalletByUser(ctx, userID)
		if err != nil {
			return err
		}
		res, err = tx.ListTransactions(ctx, w.ID, f)
		return err
	})
	return res, err
}
