package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/model"
)

const walletColumns = `id, user_id, balance, currency, updated_at`

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (t *pgTx) CreateWallet(ctx context.Context, userID int64, currency string, at time.Time) (*model.Wallet, error) {
	w, err := scanWallet(t.tx.QueryRow(ctx,
		`INSERT INTO wallets (user_id, balance, currency, updated_at)
		 VALUES ($1, 0, $2, $3) RETURNING `+walletColumns,
		userID, currency, at))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: wallet for user %d", model.ErrUserExists, userID)
		}
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

func (t *pgTx) GetWalletByUser(ctx context.Context, userID int64) (*model.Wallet, error) {
	return scanWallet(t.tx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
}

func (t *pgTx) GetWalletForUpdate(ctx context.Context, walletID int64) (*model.Wallet, error) {
	return scanWallet(t.tx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID))
}

func (t *pgTx) UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1`,
		walletID, balance, at)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrWalletNotFound
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, at *model.AccountTransaction) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO account_transactions
		   (wallet_id, entry_type, direction, amount, balance_after, ref_code, note, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		at.WalletID, string(at.EntryType), string(at.Direction), at.Amount, at.BalanceAfter,
		at.RefCode, at.Note, at.OccurredAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert account transaction: %w", err)
	}
	return id, nil
}

func (t *pgTx) ListTransactions(ctx context.Context, walletID int64, f model.TransactionFilter) ([]model.AccountTransaction, error) {
	q := newQuery(`SELECT id, wallet_id, entry_type, direction, amount, balance_after, ref_code, note, occurred_at
		FROM account_transactions WHERE wallet_id = `, walletID)

	if s := strings.TrimSpace(f.Query); s != "" {
		q.raw(" AND (note ILIKE ")
		p := q.arg(containsPattern(s))
		q.raw(` ESCAPE '\' OR ref_code ILIKE ` + p + ` ESCAPE '\')`)
	}
	if f.From != nil {
		q.and("occurred_at >= ", *f.From)
	}
	if f.To != nil {
		q.and("occurred_at <= ", *f.To)
	}
	q.raw(" ORDER BY occurred_at DESC, id DESC")
	if f.Limit > 0 {
		q.raw(" LIMIT ")
		q.arg(f.Limit)
	}

	rows, err := t.tx.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("select account transactions: %w", err)
	}
	defer rows.Close()

	var res []model.AccountTransaction
	for rows.Next() {
		var (
			row       model.AccountTransaction
			entryType string
			direction string
		)
		if err := rows.Scan(&row.ID, &row.WalletID, &entryType, &direction, &row.Amount,
			&row.BalanceAfter, &row.RefCode, &row.Note, &row.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan account transaction: %w", err)
		}
		row.EntryType = model.EntryType(entryType)
		row.Direction = model.Direction(direction)
		res = append(res, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
