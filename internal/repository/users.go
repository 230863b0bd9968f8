package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/amesupakorn/eLottery/internal/model"
)

func (t *pgTx) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO users (email, full_name, password_hash, notify_opt_in)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Email, u.FullName, u.PasswordHash, u.NotifyOptIn,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", model.ErrUserExists, u.Email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

const userColumns = `id, email, full_name, password_hash, notify_opt_in, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.NotifyOptIn, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (t *pgTx) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (t *pgTx) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (t *pgTx) SetNotifyOptIn(ctx context.Context, userID int64, optIn bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE users SET notify_opt_in = $2 WHERE id = $1`, userID, optIn)
	if err != nil {
		return fmt.Errorf("update notify opt-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
