package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/ledger"
	"github.com/amesupakorn/eLottery/internal/metrics"
	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/repository"
)

// PurchasePreview is the range and price the next purchase would get.
type PurchasePreview struct {
	DrawCode   string
	Quantity   int64
	RangeStart int64
	RangeEnd   int64
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Currency   string
}

// PurchaseResult is the outcome of a purchase. It is also the cached replay
// of an idempotent request.
type PurchaseResult struct {
	Purchase    model.TicketPurchase
	Wallet      model.Wallet
	Transaction model.AccountTransaction
	ReceiptID   string
}

func (s *Service) totalPrice(quantity int64) decimal.Decimal {
	return s.unitPrice.Mul(decimal.NewFromInt(quantity))
}

// PreviewPurchase computes the range a purchase of quantity would receive now.
// Nothing is reserved; an unknown draw previews from the first ticket number.
func (s *Service) PreviewPurchase(ctx context.Context, drawCode string, quantity int64) (*PurchasePreview, error) {
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	p := &PurchasePreview{
		DrawCode:   drawCode,
		Quantity:   quantity,
		RangeStart: draw.DefaultStartNumber,
		RangeEnd:   draw.DefaultStartNumber + quantity - 1,
		UnitPrice:  s.unitPrice,
		TotalPrice: s.totalPrice(quantity),
		Currency:   s.currency,
	}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		d, err := tx.GetDrawByCode(ctx, drawCode, false)
		if errors.Is(err, model.ErrDrawNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		r, err := draw.Peek(ctx, tx, d.ID, quantity)
		if err != nil {
			return err
		}
		p.RangeStart, p.RangeEnd = r.Start, r.End
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Purchase buys quantity consecutive ticket numbers of a SCHEDULED draw. The
// debit, the allocation and the purchase row commit together. A non-empty
// idempotencyKey replays the first result for repeated requests.
func (s *Service) Purchase(ctx context.Context, userID int64, drawCode string, quantity int64, idempotencyKey string) (*PurchaseResult, error) {
	var cached PurchaseResult
	lock, found, err := s.cache.AcquireIdempotency(ctx, userID, idempotencyKey, &cached)
	if err != nil {
		return nil, err
	}
	if found {
		s.logger.Info("purchase replayed", zap.Int64("user_id", userID), zap.String("idempotency_key", idempotencyKey))
		return &cached, nil
	}
	defer lock.Release(context.WithoutCancel(ctx))

	res, err := s.purchase(ctx, userID, drawCode, quantity)
	metrics.RecordPurchase(quantity, err)
	if err != nil {
		return nil, err
	}

	metrics.RecordLedgerEntry(string(model.EntryPurchase))
	s.logger.Info("tickets purchased",
		zap.Int64("user_id", userID),
		zap.Int64("purchase_id", res.Purchase.ID),
		zap.String("draw_code", drawCode),
		zap.Int64("range_start", res.Purchase.RangeStart),
		zap.Int64("range_end", res.Purchase.RangeEnd))

	if s.receipts != nil {
		rc, err := s.IssueReceipt(ctx, userID, res.Purchase.ID)
		if err != nil {
			s.logger.Warn("issue receipt", zap.Int64("purchase_id", res.Purchase.ID), zap.Error(err))
		} else {
			res.ReceiptID = rc.ID
		}
	}

	if err := s.cache.StoreIdempotentResult(ctx, userID, idempotencyKey, res); err != nil {
		s.logger.Warn("store idempotent result", zap.Int64("user_id", userID), zap.Error(err))
	}

	return res, nil
}

func (s *Service) purchase(ctx context.Context, userID int64, drawCode string, quantity int64) (*PurchaseResult, error) {
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	now := s.now()
	total := s.totalPrice(quantity)
	res := &PurchaseResult{}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		d, err := tx.GetDrawByCode(ctx, drawCode, true)
		if err != nil {
			return err
		}
		if !draw.AcceptsPurchases(d.Status) {
			return fmt.Errorf("%w: draw %s is %s", model.ErrInvalidStatus, d.Code, d.Status)
		}

		w, err := tx.GetWalletByUser(ctx, userID)
		if err != nil {
			return err
		}

		r, err := draw.Allocate(ctx, tx, d.ID, quantity)
		if err != nil {
			return err
		}

		note := fmt.Sprintf("Purchase %d units for draw %s (Range: %d-%d)", quantity, d.Code, r.Start, r.End)
		e := ledger.NewEntry(w.ID, model.EntryPurchase, total, fmt.Sprintf("PURCHASE-%d", now.UnixNano()), note, now)
		w, at, err := ledger.Spend(ctx, tx, e)
		if err != nil {
			return err
		}

		p := model.TicketPurchase{
			UserID:      userID,
			WalletID:    w.ID,
			DrawID:      d.ID,
			DrawCode:    d.Code,
			RangeStart:  r.Start,
			RangeEnd:    r.End,
			UnitPrice:   s.unitPrice,
			TotalPrice:  total,
			Status:      model.PurchaseStatusOwned,
			PurchasedAt: now,
		}
		p.ID, err = tx.CreatePurchase(ctx, &p)
		if err != nil {
			return err
		}

		res.Purchase = p
		res.Wallet = *w
		res.Transaction = *at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelPurchase refunds an OWNED purchase of a draw that still sells tickets.
// The range stays consumed.
func (s *Service) CancelPurchase(ctx context.Context, userID, purchaseID int64) (*model.TicketPurchase, *model.Wallet, error) {
	var (
		p *model.TicketPurchase
		w *model.Wallet
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		p, err = tx.GetPurchase(ctx, purchaseID, true)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return model.ErrReceiptOrPurchaseNotFound
		}
		if p.Status != model.PurchaseStatusOwned {
			return fmt.Errorf("%w: purchase %d is %s", model.ErrInvalidStatus, p.ID, p.Status)
		}

		d, err := tx.GetDraw(ctx, p.DrawID, true)
		if err != nil {
			return err
		}
		if !draw.AcceptsPurchases(d.Status) {
			return fmt.Errorf("%w: draw %s is %s", model.ErrInvalidStatus, d.Code, d.Status)
		}

		now := s.now()
		note := fmt.Sprintf("Refund for draw %s (Range: %d-%d)", d.Code, p.RangeStart, p.RangeEnd)
		e := ledger.NewEntry(p.WalletID, model.EntryRefund, p.TotalPrice, fmt.Sprintf("REFUND-%d", p.ID), note, now)
		w, _, err = ledger.Apply(ctx, tx, e)
		if err != nil {
			return err
		}

		if err := tx.UpdatePurchaseStatus(ctx, p.ID, model.PurchaseStatusCanceled); err != nil {
			return err
		}
		p.Status = model.PurchaseStatusCanceled
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordLedgerEntry(string(model.EntryRefund))
	s.logger.Info("purchase canceled", zap.Int64("user_id", userID), zap.Int64("purchase_id", purchaseID))
	return p, w, nil
}

// OwnedTickets lists the user's OWNED purchases, newest first.
func (s *Service) OwnedTickets(ctx context.Context, userID int64) ([]model.TicketPurchase, error) {
	var res []model.TicketPurchase
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		res, err = tx.ListPurchasesByUser(ctx, userID, model.PurchaseFilter{Status: model.PurchaseStatusOwned})
		return err
	})
	return res, err
}

// TicketHistory lists the user's purchases with their prizes. A purchase with
// at least one linked result reports WIN. Filtering by WIN keeps only those.
func (s *Service) TicketHistory(ctx context.Context, userID int64, status model.PurchaseStatus) ([]model.TicketHistoryItem, error) {
	filter := model.PurchaseFilter{Status: status}
	if status == model.PurchaseStatusWin {
		filter.Status = model.PurchaseStatusOwned
	}

	var (
		purchases []model.TicketPurchase
		results   []model.DrawResult
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		purchases, err = tx.ListPurchasesByUser(ctx, userID, filter)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(purchases))
		for _, p := range purchases {
			ids = append(ids, p.ID)
		}
		results, err = tx.ListResultsByPurchases(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	prizes := make(map[int64][]model.DrawResult)
	for _, r := range results {
		if r.PurchaseID != nil {
			prizes[*r.PurchaseID] = append(prizes[*r.PurchaseID], r)
		}
	}

	items := make([]model.TicketHistoryItem, 0, len(purchases))
	for _, p := range purchases {
		item := model.TicketHistoryItem{Purchase: p, Status: p.Status, Prizes: prizes[p.ID]}
		if len(item.Prizes) > 0 {
			item.Status = model.PurchaseStatusWin
		}
		if status == model.PurchaseStatusWin && item.Status != model.PurchaseStatusWin {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
