// Package notify posts prize announcements and e-mail subscriptions to the
// external notification gateway.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by Subscribe when no subscription endpoint is set.
var ErrNotConfigured = errors.New("notification endpoint not configured")

// Winner is one drawn number in a prize announcement.
type Winner struct {
	TierName     string          `json:"tier_name"`
	TicketNumber string          `json:"ticket_number"`
	PrizeAmount  decimal.Decimal `json:"prize_amount"`
}

// DrawEvent announces the winning numbers of a draw.
type DrawEvent struct {
	DrawID      int64    `json:"drawId"`
	DrawCode    string   `json:"drawCode"`
	ProductName string   `json:"productName"`
	Winners     []Winner `json:"winners"`
}

// Client talks to the notification gateway.
type Client struct {
	prizeURL     string
	subscribeURL string
	httpClient   *retryablehttp.Client
}

// NewClient builds a client. An empty URL disables the matching call.
func NewClient(prizeURL, subscribeURL string, logger *zap.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.HTTPClient.Timeout = 5 * time.Second
	hc.RetryMax = 3
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.Logger = leveled{logger.Sugar()}

	return &Client{
		prizeURL:     normalizeURL(prizeURL),
		subscribeURL: normalizeURL(subscribeURL),
		httpClient:   hc,
	}
}

func normalizeURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return u
}

// DrawPublished announces ev. It is a no-op when no prize URL is configured.
func (c *Client) DrawPublished(ctx context.Context, ev DrawEvent) error {
	if c == nil || c.prizeURL == "" {
		return nil
	}
	if ev.Winners == nil {
		ev.Winners = []Winner{}
	}
	return c.postJSON(ctx, c.prizeURL, ev)
}

// Subscribe registers email for prize announcements.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	if c == nil || c.subscribeURL == "" {
		return ErrNotConfigured
	}
	return c.postJSON(ctx, c.subscribeURL, map[string]string{"email": email})
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}

// leveled adapts zap to the retryablehttp logger interface.
type leveled struct {
	s *zap.SugaredLogger
}

func (l leveled) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
