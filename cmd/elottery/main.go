// Package main starts the eLottery HTTP server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amesupakorn/eLottery/internal/cache"
	"github.com/amesupakorn/eLottery/internal/config"
	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/handler"
	"github.com/amesupakorn/eLottery/internal/logger"
	"github.com/amesupakorn/eLottery/internal/middleware"
	"github.com/amesupakorn/eLottery/internal/notify"
	"github.com/amesupakorn/eLottery/internal/receipt"
	"github.com/amesupakorn/eLottery/internal/repository"
	"github.com/amesupakorn/eLottery/internal/repository/memory"
	"github.com/amesupakorn/eLottery/internal/service"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, _, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	sugar := log.Sugar()

	if cfg.AuthSecret == "" {
		cfg.AuthSecret = randomSecret()
		sugar.Warn("AUTH_SECRET is empty, sessions and receipt links will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, auth, err := build(ctx, cfg, log)
	if err != nil {
		sugar.Fatalw("initialization error", "error", err)
	}
	defer svc.Close()

	h := handler.NewHandler(svc, log, auth, cfg.OperatorKey)
	if cfg.OperatorKey == "" {
		sugar.Warn("OPERATOR_KEY is empty, draw administration is disabled")
	}

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting elottery server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// build wires storage, cache, notifications and receipts into the service.
func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*service.Service, *middleware.AuthMiddleware, error) {
	var store repository.Store
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		store = repo
	} else {
		log.Warn("DATABASE_URI is empty, using in-memory storage")
		store = memory.New()
	}

	c, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	gen, err := draw.NewGenerator(draw.NumberSpace{Min: cfg.TicketNumberMin, Max: cfg.TicketNumberMax}, nil)
	if err != nil {
		_ = store.Close()
		_ = c.Close()
		return nil, nil, err
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithGenerator(gen),
		service.WithCache(c),
		service.WithPricing(cfg.UnitPrice, cfg.Currency),
		service.WithNotifier(notify.NewClient(cfg.PrizeNotifyURL, cfg.SubscribeURL, log)),
	}

	if cfg.ReceiptDir != "" {
		fs, err := receipt.NewFileStore(cfg.ReceiptDir)
		if err != nil {
			_ = store.Close()
			_ = c.Close()
			return nil, nil, fmt.Errorf("receipt store: %w", err)
		}
		signer := receipt.NewSigner(cfg.AuthSecret, cfg.ReceiptLinkTTL)
		opts = append(opts, service.WithReceipts(receipt.NewIssuer(fs, signer, cfg.PublicBaseURL)))
	}

	svc, err := service.NewService(store, opts...)
	if err != nil {
		_ = store.Close()
		_ = c.Close()
		return nil, nil, err
	}

	var revoker middleware.Revoker
	if c != nil {
		revoker = c
	}
	return svc, middleware.NewAuthMiddleware(cfg.AuthSecret, revoker), nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
