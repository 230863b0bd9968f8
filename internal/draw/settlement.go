package draw

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/ledger"
	"github.com/amesupakorn/eLottery/internal/model"
)

// SettlementStore is what settlement reads and writes. All calls happen in
// one transaction owned by the caller.
type SettlementStore interface {
	ledger.Store
	ListDrawResults(ctx context.Context, drawID int64) ([]model.DrawResult, error)
	// FindPurchasesCovering returns OWNED purchases of the draw whose range
	// contains at least one of numbers.
	FindPurchasesCovering(ctx context.Context, drawID int64, numbers []int64) ([]model.TicketPurchase, error)
	SettleDrawResult(ctx context.Context, resultID, userID, purchaseID int64) error
	UpdateDrawStatus(ctx context.Context, drawID int64, status model.DrawStatus) error
}

// Payout is one prize credited to a wallet.
type Payout struct {
	ResultID     int64
	TierName     string
	TicketNumber string
	UserID       int64
	PurchaseID   int64
	WalletID     int64
	Amount       decimal.Decimal
	Transaction  *model.AccountTransaction
}

// Settlement is the outcome of publishing a draw.
type Settlement struct {
	Draw    *model.Draw
	Results []model.DrawResult
	Payouts []Payout
}

// Total returns the sum of all payouts.
func (s *Settlement) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Payouts {
		total = total.Add(p.Amount)
	}
	return total
}

// Settle pays every result whose number falls inside an owned purchase range,
// links those results to their purchase and marks the draw PUBLISHED.
// Results nobody bought stay unlinked.
func Settle(ctx context.Context, s SettlementStore, d *model.Draw, at time.Time) (*Settlement, error) {
	results, err := s.ListDrawResults(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("list draw results: %w", err)
	}

	numbers := make([]int64, len(results))
	for i, r := range results {
		n, err := ParseTicketNumber(r.TicketNumber)
		if err != nil {
			return nil, err
		}
		numbers[i] = n
	}

	var purchases []model.TicketPurchase
	if len(numbers) > 0 {
		purchases, err = s.FindPurchasesCovering(ctx, d.ID, numbers)
		if err != nil {
			return nil, fmt.Errorf("find winning purchases: %w", err)
		}
	}

	out := &Settlement{Draw: d}
	ref := fmt.Sprintf("DRAW-%d", d.ID)

	for i := range results {
		r := &results[i]
		if r.Settled() {
			continue
		}

		p := coveringPurchase(purchases, numbers[i])
		if p == nil {
			continue
		}

		payout := Payout{
			ResultID:     r.ID,
			TierName:     r.TierName,
			TicketNumber: r.TicketNumber,
			UserID:       p.UserID,
			PurchaseID:   p.ID,
			WalletID:     p.WalletID,
			Amount:       r.PrizeAmount,
		}

		if r.PrizeAmount.IsPositive() {
			entry := ledger.NewEntry(p.WalletID, model.EntryPrize, r.PrizeAmount, ref, "Prize for "+r.TicketNumber, at)
			_, tx, err := ledger.Apply(ctx, s, entry)
			if err != nil {
				return nil, fmt.Errorf("credit prize for %s: %w", r.TicketNumber, err)
			}
			payout.Transaction = tx
		}

		if err := s.SettleDrawResult(ctx, r.ID, p.UserID, p.ID); err != nil {
			return nil, fmt.Errorf("link draw result %d: %w", r.ID, err)
		}

		userID, purchaseID := p.UserID, p.ID
		r.UserID = &userID
		r.PurchaseID = &purchaseID
		out.Payouts = append(out.Payouts, payout)
	}

	if err := s.UpdateDrawStatus(ctx, d.ID, model.DrawStatusPublished); err != nil {
		return nil, fmt.Errorf("update draw status: %w", err)
	}
	d.Status = model.DrawStatusPublished
	out.Results = results

	return out, nil
}

func coveringPurchase(purchases []model.TicketPurchase, n int64) *model.TicketPurchase {
	for i := range purchases {
		if purchases[i].Status == model.PurchaseStatusOwned && purchases[i].Contains(n) {
			return &purchases[i]
		}
	}
	return nil
}
