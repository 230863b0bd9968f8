package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/notify"
	"github.com/amesupakorn/eLottery/internal/repository"
)

// Register creates a user together with an empty wallet.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        normalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		id, err := tx.CreateUser(ctx, u)
		if err != nil {
			return err
		}
		u.ID = id
		_, err = tx.CreateWallet(ctx, id, s.currency, u.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", u.ID))
	return u, nil
}

// Authenticate checks the credentials and returns the user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var u *model.User
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.GetUserByEmail(ctx, normalizeEmail(email))
		return err
	})
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return u, nil
}

// CurrentUser returns the user behind a session.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	var u *model.User
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.GetUserByID(ctx, userID)
		return err
	})
	return u, err
}

// SetNotifications stores the prize notification preference. Opting in also
// subscribes the user's e-mail to the notification channel.
func (s *Service) SetNotifications(ctx context.Context, userID int64, optIn bool) (*model.User, error) {
	var u *model.User
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.SetNotifyOptIn(ctx, userID, optIn); err != nil {
			return err
		}
		var err error
		u, err = tx.GetUserByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if optIn && s.notifier != nil {
		err := s.notifier.Subscribe(ctx, u.Email)
		switch {
		case errors.Is(err, notify.ErrNotConfigured):
			s.logger.Debug("subscription endpoint not configured", zap.Int64("user_id", userID))
		case err != nil:
			s.logger.Warn("subscribe e-mail", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	return u, nil
}

// RevokeSession signs a session token out until it expires.
func (s *Service) RevokeSession(ctx context.Context, token string, expiresAt time.Time) error {
	return s.cache.RevokeToken(ctx, token, expiresAt)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
