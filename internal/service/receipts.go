package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/receipt"
	"github.com/amesupakorn/eLottery/internal/repository"
)

// ErrReceiptsDisabled is returned when no receipt issuer is configured.
var ErrReceiptsDisabled = errors.New("receipts are not configured")

// IssueReceipt renders and stores the receipt of a purchase. A purchase has at
// most one receipt; issuing again returns the existing one.
func (s *Service) IssueReceipt(ctx context.Context, userID, purchaseID int64) (*model.Receipt, error) {
	if s.receipts == nil {
		return nil, ErrReceiptsDisabled
	}

	now := s.now()
	id := uuid.NewString()
	var (
		rc      *model.Receipt
		written string
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		p, err := tx.GetPurchase(ctx, purchaseID, true)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return model.ErrReceiptOrPurchaseNotFound
		}

		rc, err = tx.GetReceiptByPurchase(ctx, p.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrReceiptOrPurchaseNotFound) {
			return err
		}

		u, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		d, err := tx.GetDraw(ctx, p.DrawID, false)
		if err != nil {
			return err
		}

		// Retries reuse id and now, so they overwrite the same document.
		key, err := s.receipts.Issue(receipt.Document{
			ReceiptID:   id,
			DrawCode:    d.Code,
			ProductName: d.ProductName,
			Quantity:    p.Quantity(),
			UnitPrice:   p.UnitPrice,
			Currency:    s.currency,
			RangeStart:  p.RangeStart,
			RangeEnd:    p.RangeEnd,
			BuyerName:   u.DisplayName(),
			BuyerEmail:  u.Email,
			PurchasedAt: p.PurchasedAt,
			VerifyURL:   s.receipts.VerifyURL(id),
		}, now)
		if err != nil {
			return fmt.Errorf("store receipt document: %w", err)
		}
		written = key

		rc = &model.Receipt{
			ID:         id,
			UserID:     userID,
			PurchaseID: p.ID,
			DrawCode:   d.Code,
			ObjectKey:  key,
			CreatedAt:  now,
		}
		return tx.CreateReceipt(ctx, rc)
	})
	if written != "" && (err != nil || rc.ObjectKey != written) {
		if derr := s.receipts.Discard(written); derr != nil {
			s.logger.Warn("discard receipt document", zap.String("key", written), zap.Error(derr))
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("receipt issued", zap.String("receipt_id", rc.ID), zap.Int64("purchase_id", purchaseID))
	return rc, nil
}

// ReceiptLink signs a short-lived download link for the user's receipt.
func (s *Service) ReceiptLink(ctx context.Context, userID int64, receiptID string) (receipt.Link, error) {
	if s.receipts == nil {
		return receipt.Link{}, ErrReceiptsDisabled
	}

	var rc *model.Receipt
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		rc, err = tx.GetReceipt(ctx, receiptID)
		return err
	})
	if err != nil {
		return receipt.Link{}, err
	}
	if rc.UserID != userID {
		return receipt.Link{}, model.ErrReceiptOrPurchaseNotFound
	}

	return s.receipts.Link(rc.ID, userID, s.now())
}

// VerifyReceipt looks up a receipt by the id printed on it.
func (s *Service) VerifyReceipt(ctx context.Context, receiptID string) (*model.Receipt, error) {
	var rc *model.Receipt
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		rc, err = tx.GetReceipt(ctx, receiptID)
		return err
	})
	return rc, err
}

// OpenReceipt resolves a signed link and opens the document it points at.
// The caller closes the reader.
func (s *Service) OpenReceipt(ctx context.Context, token string) (io.ReadCloser, *model.Receipt, error) {
	if s.receipts == nil {
		return nil, nil, ErrReceiptsDisabled
	}

	receiptID, userID, err := s.receipts.Resolve(token, s.now())
	if err != nil {
		return nil, nil, err
	}

	var rc *model.Receipt
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		rc, err = tx.GetReceipt(ctx, receiptID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if rc.UserID != userID {
		return nil, nil, receipt.ErrInvalidLink
	}

	body, err := s.receipts.Open(rc.ObjectKey)
	if errors.Is(err, receipt.ErrNotFound) {
		return nil, nil, model.ErrReceiptOrPurchaseNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return body, rc, nil
}
