// Package config reads the service configuration from flags and the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/ledger"
)

const defaultRunAddress = "localhost:8080"

// Config holds the service settings. Environment variables win over flags.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`
	OperatorKey string `env:"OPERATOR_KEY"`

	RedisAddress  string `env:"REDIS_ADDRESS"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	PrizeNotifyURL string `env:"PRIZE_NOTIFY_URL"`
	SubscribeURL   string `env:"SUBSCRIBE_URL"`

	ReceiptDir     string        `env:"RECEIPT_DIR" envDefault:"./data"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL"`
	ReceiptLinkTTL time.Duration `env:"RECEIPT_LINK_TTL" envDefault:"10m"`

	UnitPrice       decimal.Decimal `env:"UNIT_PRICE" envDefault:"100"`
	Currency        string          `env:"CURRENCY" envDefault:"THB"`
	TicketNumberMin int64           `env:"TICKET_NUMBER_MIN" envDefault:"100000"`
	TicketNumberMax int64           `env:"TICKET_NUMBER_MAX" envDefault:"999999"`

	Log LogConfig `envPrefix:"LOG_"`
}

// LogConfig configures the zap logger and its rotated file output.
type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"7"`
	MaxDays    int    `env:"MAX_DAYS" envDefault:"14"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

// Parse reads flags and environment variables.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Flags only fill what the environment left empty.
	flagged := []struct {
		dst   *string
		name  string
		def   string
		usage string
	}{
		{&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server"},
		{&cfg.DatabaseURI, "d", "", "database URI, in-memory storage when empty"},
		{&cfg.AuthSecret, "s", "", "session signing secret"},
		{&cfg.OperatorKey, "k", "", "operator key for draw administration"},
		{&cfg.RedisAddress, "r", "", "redis address, caching disabled when empty"},
		{&cfg.PrizeNotifyURL, "n", "", "prize notification endpoint"},
	}

	fromEnv := make([]string, len(flagged))
	for i, f := range flagged {
		fromEnv[i] = *f.dst
		flag.StringVar(f.dst, f.name, f.def, f.usage)
	}

	flag.Parse()

	for i, f := range flagged {
		if fromEnv[i] != "" {
			*f.dst = fromEnv[i]
		}
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://" + cfg.RunAddress
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := ledger.ValidateAmount(c.UnitPrice); err != nil {
		return fmt.Errorf("UNIT_PRICE: %w", err)
	}
	if c.TicketNumberMin < 0 || c.TicketNumberMax < c.TicketNumberMin || c.TicketNumberMax > draw.MaxTicketNumber {
		return fmt.Errorf("invalid ticket number space [%d, %d]", c.TicketNumberMin, c.TicketNumberMax)
	}
	if c.ReceiptLinkTTL <= 0 {
		return errors.New("RECEIPT_LINK_TTL must be positive")
	}
	return nil
}
