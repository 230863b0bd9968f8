package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/amesupakorn/eLottery/internal/model"
)

const drawColumns = `id, draw_code, product_name, status, created_at`

func scanDraw(row pgx.Row) (*model.Draw, error) {
	var (
		d      model.Draw
		status string
	)
	if err := row.Scan(&d.ID, &d.Code, &d.ProductName, &status, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrDrawNotFound
		}
		return nil, fmt.Errorf("get draw: %w", err)
	}
	d.Status = model.DrawStatus(status)
	return &d, nil
}

func (t *pgTx) CreateDraw(ctx context.Context, d *model.Draw) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO draws (draw_code, product_name, status, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		d.Code, d.ProductName, string(d.Status), d.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", model.ErrDrawCodeConflict, d.Code)
		}
		return 0, fmt.Errorf("insert draw: %w", err)
	}
	return id, nil
}

func (t *pgTx) GetDraw(ctx context.Context, id int64, lock bool) (*model.Draw, error) {
	return scanDraw(t.tx.QueryRow(ctx,
		forUpdate(`SELECT `+drawColumns+` FROM draws WHERE id = $1`, lock), id))
}

func (t *pgTx) GetDrawByCode(ctx context.Context, code string, lock bool) (*model.Draw, error) {
	return scanDraw(t.tx.QueryRow(ctx,
		forUpdate(`SELECT `+drawColumns+` FROM draws WHERE draw_code = $1`, lock), code))
}

func (t *pgTx) LatestDrawByStatus(ctx context.Context, status model.DrawStatus) (*model.Draw, error) {
	return scanDraw(t.tx.QueryRow(ctx,
		`SELECT `+drawColumns+` FROM draws WHERE status = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, string(status)))
}

func (t *pgTx) ListDraws(ctx context.Context, status model.DrawStatus) ([]model.Draw, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+drawColumns+` FROM draws
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at DESC, id DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("select draws: %w", err)
	}
	defer rows.Close()

	var res []model.Draw
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (t *pgTx) UpdateDrawStatus(ctx context.Context, drawID int64, status model.DrawStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE draws SET status = $2 WHERE id = $1`, drawID, string(status))
	if err != nil {
		return fmt.Errorf("update draw status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDrawNotFound
	}
	return nil
}

func (t *pgTx) CreatePrizeTier(ctx context.Context, pt *model.PrizeTier) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO prize_tiers (draw_id, rank, tier_name, prize_amount, winners_count)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		pt.DrawID, pt.Rank, pt.Name, pt.PrizeAmount, pt.WinnersCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert prize tier: %w", err)
	}
	return id, nil
}

func (t *pgTx) ListPrizeTiers(ctx context.Context, drawID int64) ([]model.PrizeTier, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, draw_id, rank, tier_name, prize_amount, winners_count
		 FROM prize_tiers WHERE draw_id = $1 ORDER BY rank, id`, drawID)
	if err != nil {
		return nil, fmt.Errorf("select prize tiers: %w", err)
	}
	defer rows.Close()

	var res []model.PrizeTier
	for rows.Next() {
		var pt model.PrizeTier
		if err := rows.Scan(&pt.ID, &pt.DrawID, &pt.Rank, &pt.Name, &pt.PrizeAmount, &pt.WinnersCount); err != nil {
			return nil, fmt.Errorf("scan prize tier: %w", err)
		}
		res = append(res, pt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ClaimDrawRun records that results are being generated for drawID. A second
// claim for the same draw fails with ErrResultsAlreadyExist.
func (t *pgTx) ClaimDrawRun(ctx context.Context, drawID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO draw_runs (draw_id, created_at) VALUES ($1, $2)`, drawID, at)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: draw %d", model.ErrResultsAlreadyExist, drawID)
		}
		return fmt.Errorf("insert draw run: %w", err)
	}
	return nil
}

func (t *pgTx) CountDrawResults(ctx context.Context, drawID int64) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM draw_results WHERE draw_id = $1`, drawID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count draw results: %w", err)
	}
	return n, nil
}

func (t *pgTx) CreateDrawResult(ctx context.Context, r *model.DrawResult) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO draw_results (draw_id, prize_tier_id, ticket_number, prize_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.DrawID, r.TierID, r.TicketNumber, r.PrizeAmount, r.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: ticket %s", model.ErrResultsAlreadyExist, r.TicketNumber)
		}
		return 0, fmt.Errorf("insert draw result: %w", err)
	}
	return id, nil
}

const resultSelect = `SELECT r.id, r.draw_id, r.prize_tier_id, t.tier_name, r.ticket_number,
		r.prize_amount, r.user_id, r.purchase_id, r.created_at
	FROM draw_results r JOIN prize_tiers t ON t.id = r.prize_tier_id`

func (t *pgTx) selectResults(ctx context.Context, query string, args ...any) ([]model.DrawResult, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select draw results: %w", err)
	}
	defer rows.Close()

	var res []model.DrawResult
	for rows.Next() {
		var r model.DrawResult
		if err := rows.Scan(&r.ID, &r.DrawID, &r.TierID, &r.TierName, &r.TicketNumber,
			&r.PrizeAmount, &r.UserID, &r.PurchaseID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan draw result: %w", err)
		}
		res = append(res, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (t *pgTx) ListDrawResults(ctx context.Context, drawID int64) ([]model.DrawResult, error) {
	return t.selectResults(ctx, resultSelect+` WHERE r.draw_id = $1 ORDER BY t.rank, r.id`, drawID)
}

func (t *pgTx) ListResultsByPurchases(ctx context.Context, purchaseIDs []int64) ([]model.DrawResult, error) {
	if len(purchaseIDs) == 0 {
		return nil, nil
	}
	return t.selectResults(ctx, resultSelect+` WHERE r.purchase_id = ANY($1) ORDER BY t.rank, r.id`, purchaseIDs)
}

func (t *pgTx) SettleDrawResult(ctx context.Context, resultID, userID, purchaseID int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE draw_results SET user_id = $2, purchase_id = $3 WHERE id = $1`,
		resultID, userID, purchaseID)
	if err != nil {
		return fmt.Errorf("settle draw result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDrawNotFound
	}
	return nil
}
