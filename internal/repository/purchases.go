package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/amesupakorn/eLottery/internal/model"
)

// LockDrawRanges takes a transaction-scoped advisory lock that serializes
// range allocation within one draw.
func (t *pgTx) LockDrawRanges(ctx context.Context, drawID int64) error {
	_, err := t.tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock($1, ($2::bigint % 2147483647)::int)`,
		ticketRangeLockClass, drawID)
	if err != nil {
		return fmt.Errorf("lock draw ranges: %w", err)
	}
	return nil
}

func (t *pgTx) MaxRangeEnd(ctx context.Context, drawID int64) (int64, bool, error) {
	var maxEnd *int64
	err := t.tx.QueryRow(ctx,
		`SELECT max(range_end) FROM ticket_purchases WHERE draw_id = $1`, drawID,
	).Scan(&maxEnd)
	if err != nil {
		return 0, false, fmt.Errorf("select max range end: %w", err)
	}
	if maxEnd == nil {
		return 0, false, nil
	}
	return *maxEnd, true, nil
}

func (t *pgTx) CreatePurchase(ctx context.Context, p *model.TicketPurchase) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO ticket_purchases
		   (user_id, wallet_id, draw_id, range_start, range_end, unit_price, total_price, status, purchased_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		p.UserID, p.WalletID, p.DrawID, p.RangeStart, p.RangeEnd,
		p.UnitPrice, p.TotalPrice, string(p.Status), p.PurchasedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("range %d-%d already allocated in draw %d", p.RangeStart, p.RangeEnd, p.DrawID)
		}
		return 0, fmt.Errorf("insert ticket purchase: %w", err)
	}
	return id, nil
}

const purchaseSelect = `SELECT p.id, p.user_id, p.wallet_id, p.draw_id, d.draw_code,
		p.range_start, p.range_end, p.unit_price, p.total_price, p.status, p.purchased_at
	FROM ticket_purchases p JOIN draws d ON d.id = p.draw_id`

func scanPurchase(row pgx.Row) (*model.TicketPurchase, error) {
	var (
		p      model.TicketPurchase
		status string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.WalletID, &p.DrawID, &p.DrawCode,
		&p.RangeStart, &p.RangeEnd, &p.UnitPrice, &p.TotalPrice, &status, &p.PurchasedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReceiptOrPurchaseNotFound
		}
		return nil, fmt.Errorf("get ticket purchase: %w", err)
	}
	p.Status = model.PurchaseStatus(status)
	return &p, nil
}

func (t *pgTx) GetPurchase(ctx context.Context, id int64, lock bool) (*model.TicketPurchase, error) {
	q := purchaseSelect + ` WHERE p.id = $1`
	if lock {
		q += ` FOR UPDATE OF p`
	}
	return scanPurchase(t.tx.QueryRow(ctx, q, id))
}

func (t *pgTx) UpdatePurchaseStatus(ctx context.Context, id int64, status model.PurchaseStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE ticket_purchases SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update purchase status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReceiptOrPurchaseNotFound
	}
	return nil
}

func (t *pgTx) selectPurchases(ctx context.Context, query string, args ...any) ([]model.TicketPurchase, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select ticket purchases: %w", err)
	}
	defer rows.Close()

	var res []model.TicketPurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (t *pgTx) ListPurchasesByUser(ctx context.Context, userID int64, f model.PurchaseFilter) ([]model.TicketPurchase, error) {
	q := newQuery(purchaseSelect+` WHERE p.user_id = `, userID)
	if f.Status != "" {
		q.and("p.status = ", string(f.Status))
	}
	if f.DrawID != 0 {
		q.and("p.draw_id = ", f.DrawID)
	}
	q.raw(" ORDER BY p.purchased_at DESC, p.id DESC")

	return t.selectPurchases(ctx, q.String(), q.args...)
}

// FindPurchasesCovering returns owned purchases of drawID whose range contains
// at least one of numbers.
func (t *pgTx) FindPurchasesCovering(ctx context.Context, drawID int64, numbers []int64) ([]model.TicketPurchase, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	return t.selectPurchases(ctx, purchaseSelect+`
		WHERE p.draw_id = $1 AND p.status = $3
		  AND EXISTS (SELECT 1 FROM unnest($2::bigint[]) n WHERE n BETWEEN p.range_start AND p.range_end)
		ORDER BY p.range_start`,
		drawID, numbers, string(model.PurchaseStatusOwned))
}
