// Package service implements the business operations of the eLottery service.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/cache"
	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/notify"
	"github.com/amesupakorn/eLottery/internal/receipt"
	"github.com/amesupakorn/eLottery/internal/repository"
)

const (
	defaultCurrency = "THB"
	// maxDrawCodeAttempts bounds regeneration of a colliding draw code.
	maxDrawCodeAttempts = 5
)

var defaultUnitPrice = decimal.NewFromInt(100)

// Notifier delivers prize announcements and e-mail subscriptions.
type Notifier interface {
	DrawPublished(ctx context.Context, ev notify.DrawEvent) error
	Subscribe(ctx context.Context, email string) error
}

// Service holds the business logic of the lottery.
type Service struct {
	store     repository.Store
	generator *draw.Generator
	notifier  Notifier
	receipts  *receipt.Issuer
	cache     *cache.Cache
	logger    *zap.Logger

	unitPrice decimal.Decimal
	currency  string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator sets the winning number generator.
func WithGenerator(g *draw.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithNotifier sets the prize and subscription channel.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithReceipts enables receipt issuing.
func WithReceipts(i *receipt.Issuer) Option {
	return func(s *Service) { s.receipts = i }
}

// WithCache enables idempotent purchases and the published results cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPricing sets the ticket unit price and the wallet currency.
func WithPricing(unitPrice decimal.Decimal, currency string) Option {
	return func(s *Service) {
		s.unitPrice = unitPrice
		s.currency = currency
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service on top of store.
func NewService(store repository.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:     store,
		logger:    zap.NewNop(),
		unitPrice: defaultUnitPrice,
		currency:  defaultCurrency,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.generator == nil {
		g, err := draw.NewGenerator(draw.DefaultNumberSpace, nil)
		if err != nil {
			return nil, err
		}
		s.generator = g
	}

	return s, nil
}

// Ping checks the storage connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the storage and the cache.
func (s *Service) Close() error {
	if err := s.cache.Close(); err != nil {
		s.logger.Warn("close cache", zap.Error(err))
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
