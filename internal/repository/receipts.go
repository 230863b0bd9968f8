package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/amesupakorn/eLottery/internal/model"
)

func (t *pgTx) CreateReceipt(ctx context.Context, r *model.Receipt) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO receipts (receipt_id, user_id, purchase_id, draw_code, object_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.UserID, r.PurchaseID, r.DrawCode, r.ObjectKey, r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: receipt for purchase %d", model.ErrDuplicateRequest, r.PurchaseID)
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

const receiptSelect = `SELECT receipt_id, user_id, purchase_id, draw_code, object_key, created_at FROM receipts`

func scanReceipt(row pgx.Row) (*model.Receipt, error) {
	var r model.Receipt
	if err := row.Scan(&r.ID, &r.UserID, &r.PurchaseID, &r.DrawCode, &r.ObjectKey, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReceiptOrPurchaseNotFound
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return &r, nil
}

func (t *pgTx) GetReceipt(ctx context.Context, id string) (*model.Receipt, error) {
	return scanReceipt(t.tx.QueryRow(ctx, receiptSelect+` WHERE receipt_id = $1`, id))
}

func (t *pgTx) GetReceiptByPurchase(ctx context.Context, purchaseID int64) (*model.Receipt, error) {
	return scanReceipt(t.tx.QueryRow(ctx, receiptSelect+` WHERE purchase_id = $1`, purchaseID))
}
