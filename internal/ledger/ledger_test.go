package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amesupakorn/eLottery/internal/model"
)

type stubStore struct {
	wallets map[int64]*model.Wallet
	txs     []model.AccountTransaction

	insertErr error
	updateErr error
}

func newStubStore(balance string) *stubStore {
	return &stubStore{
		wallets: map[int64]*model.Wallet{
			1: {ID: 1, UserID: 10, Balance: decimal.RequireFromString(balance), Currency: "THB"},
		},
	}
}

func (s *stubStore) GetWalletForUpdate(ctx context.Context, walletID int64) (*model.Wallet, error) {
	w, ok := s.wallets[walletID]
	if !ok {
		return nil, model.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *stubStore) UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal, at time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.wallets[walletID].Balance = balance
	s.wallets[walletID].UpdatedAt = at
	return nil
}

func (s *stubStore) InsertTransaction(ctx context.Context, t *model.AccountTransaction) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.txs = append(s.txs, *t)
	return int64(len(s.txs)), nil
}

func replay(txs []model.AccountTransaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		if t.Direction == model.Credit {
			sum = sum.Add(t.Amount)
		} else {
			sum = sum.Sub(t.Amount)
		}
	}
	return sum
}

func TestDirectionConvention(t *testing.T) {
	tests := []struct {
		entry model.EntryType
		want  model.Direction
		delta string
	}{
		{model.EntryDeposit, model.Credit, "50"},
		{model.EntryPrize, model.Credit, "50"},
		{model.EntryRefund, model.Credit, "50"},
		{model.EntryWithdrawal, model.Debit, "-50"},
		{model.EntryPurchase, model.Debit, "-50"},
	}

	for _, tt := range tests {
		t.Run(string(tt.entry), func(t *testing.T) {
			assert.Equal(t, tt.want, DirectionFor(tt.entry))

			s := newStubStore("100")
			w, tx, err := Apply(context.Background(), s, NewEntry(1, tt.entry, decimal.NewFromInt(50), "REF", "", time.Time{}))
			require.NoError(t, err)

			want := decimal.NewFromInt(100).Add(decimal.RequireFromString(tt.delta))
			assert.True(t, want.Equal(w.Balance), "balance %s, want %s", w.Balance, want)
			assert.True(t, want.Equal(tx.BalanceAfter))
			assert.Equal(t, tt.want, tx.Direction)
		})
	}
}

func TestApply_PairsBalanceWithTransaction(t *testing.T) {
	s := newStubStore("0")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	w, tx, err := Apply(context.Background(), s, NewEntry(1, model.EntryDeposit, decimal.RequireFromString("10.25"), "DEP-1", "deposit", at))
	require.NoError(t, err)

	assert.Equal(t, int64(1), tx.ID)
	assert.Equal(t, "10.25", w.Balance.StringFixed(2))
	assert.Equal(t, "10.25", s.wallets[1].Balance.StringFixed(2))
	assert.Equal(t, at, s.wallets[1].UpdatedAt)
	require.Len(t, s.txs, 1)
	assert.Equal(t, "DEP-1", s.txs[0].RefCode)
}

func TestApply_Conservation(t *testing.T) {
	s := newStubStore("0")
	ctx := context.Background()

	steps := []struct {
		entry  model.EntryType
		amount string
	}{
		{model.EntryDeposit, "1000.10"},
		{model.EntryPurchase, "300"},
		{model.EntryPrize, "0.01"},
		{model.EntryWithdrawal, "99.99"},
		{model.EntryRefund, "100"},
		{model.EntryPurchase, "0.10"},
	}

	for _, st := range steps {
		_, _, err := Apply(ctx, s, NewEntry(1, st.entry, decimal.RequireFromString(st.amount), "", "", time.Time{}))
		require.NoError(t, err)
		assert.True(t, replay(s.txs).Equal(s.wallets[1].Balance), "ledger %s != balance %s", replay(s.txs), s.wallets[1].Balance)
	}
	assert.Equal(t, "700.02", s.wallets[1].Balance.StringFixed(2))
}

func TestApply_DoesNotEnforceNonNegative(t *testing.T) {
	s := newStubStore("10")

	w, _, err := Apply(context.Background(), s, NewEntry(1, model.EntryWithdrawal, decimal.NewFromInt(25), "", "", time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, "-15", w.Balance.String())
}

func TestSpend_InsufficientFundsHasNoSideEffects(t *testing.T) {
	s := newStubStore("10")

	_, _, err := Spend(context.Background(), s, NewEntry(1, model.EntryPurchase, decimal.NewFromInt(11), "", "", time.Time{}))
	require.ErrorIs(t, err, model.ErrInsufficientFunds)
	assert.Empty(t, s.txs)
	assert.Equal(t, "10", s.wallets[1].Balance.String())
}

func TestSpend_ExactBalance(t *testing.T) {
	s := newStubStore("10")

	w, _, err := Spend(context.Background(), s, NewEntry(1, model.EntryPurchase, decimal.NewFromInt(10), "", "", time.Time{}))
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestApply_Errors(t *testing.T) {
	ctx := context.Background()

	_, _, err := Apply(ctx, newStubStore("0"), NewEntry(2, model.EntryDeposit, decimal.NewFromInt(1), "", "", time.Time{}))
	assert.ErrorIs(t, err, model.ErrWalletNotFound)

	for _, amount := range []string{"0", "-1", "0.001"} {
		_, _, err = Apply(ctx, newStubStore("0"), NewEntry(1, model.EntryDeposit, decimal.RequireFromString(amount), "", "", time.Time{}))
		assert.ErrorIs(t, err, model.ErrInvalidAmount, amount)
	}

	s := newStubStore("0")
	s.insertErr = errors.New("boom")
	_, _, err = Apply(ctx, s, NewEntry(1, model.EntryDeposit, decimal.NewFromInt(1), "", "", time.Time{}))
	require.Error(t, err)
	assert.True(t, s.wallets[1].Balance.IsZero())
}
