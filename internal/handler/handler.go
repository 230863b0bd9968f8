// Package handler contains the HTTP API of the eLottery service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/cache"
	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/middleware"
	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/receipt"
	"github.com/amesupakorn/eLottery/internal/service"
)

// Service is the business logic the HTTP handlers call.
type Service interface {
	Ping(ctx context.Context) error

	Register(ctx context.Context, email, password, fullName string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	CurrentUser(ctx context.Context, userID int64) (*model.User, error)
	SetNotifications(ctx context.Context, userID int64, optIn bool) (*model.User, error)
	RevokeSession(ctx context.Context, token string, expiresAt time.Time) error

	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Wallet, *model.AccountTransaction, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*model.Wallet, *model.AccountTransaction, error)
	TransactionHistory(ctx context.Context, userID int64, f model.TransactionFilter) ([]model.AccountTransaction, error)

	PreviewPurchase(ctx context.Context, drawCode string, quantity int64) (*service.PurchasePreview, error)
	Purchase(ctx context.Context, userID int64, drawCode string, quantity int64, idempotencyKey string) (*service.PurchaseResult, error)
	CancelPurchase(ctx context.Context, userID, purchaseID int64) (*model.TicketPurchase, *model.Wallet, error)
	OwnedTickets(ctx context.Context, userID int64) ([]model.TicketPurchase, error)
	TicketHistory(ctx context.Context, userID int64, status model.PurchaseStatus) ([]model.TicketHistoryItem, error)

	CreateDraw(ctx context.Context, nd service.NewDraw) (*service.DrawDetails, error)
	ListDraws(ctx context.Context, status model.DrawStatus) ([]model.Draw, error)
	GetDraw(ctx context.Context, drawID int64) (*service.DrawDetails, error)
	CurrentDraw(ctx context.Context) (*model.Draw, error)
	CurrentResults(ctx context.Context) (*service.DrawDetails, error)
	LockDraw(ctx context.Context, drawID int64) (*model.Draw, error)
	RunDraw(ctx context.Context, drawID int64) (*service.DrawDetails, error)
	PublishDraw(ctx context.Context, drawID int64) (*draw.Settlement, error)
	Flow(ctx context.Context) (*service.FlowResult, error)

	IssueReceipt(ctx context.Context, userID, purchaseID int64) (*model.Receipt, error)
	ReceiptLink(ctx context.Context, userID int64, receiptID string) (receipt.Link, error)
	VerifyReceipt(ctx context.Context, receiptID string) (*model.Receipt, error)
	OpenReceipt(ctx context.Context, token string) (io.ReadCloser, *model.Receipt, error)
}

// IdempotencyHeader lets clients retry a purchase safely.
const IdempotencyHeader = "Idempotency-Key"

// Handler implements the HTTP API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	operatorKey    string
}

// NewHandler creates the HTTP handlers. An empty operatorKey disables the
// draw administration routes.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, operatorKey string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		operatorKey:    operatorKey,
	}
}

// Healthz reports whether storage is reachable.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// statusFor maps business errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInvalidCredentials),
		errors.Is(err, receipt.ErrInvalidLink):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrDrawNotFound),
		errors.Is(err, model.ErrWalletNotFound),
		errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrReceiptOrPurchaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrResultsAlreadyExist),
		errors.Is(err, model.ErrNoResultsToPublish),
		errors.Is(err, model.ErrUserExists),
		errors.Is(err, model.ErrDrawCodeConflict),
		errors.Is(err, model.ErrDuplicateRequest),
		errors.Is(err, cache.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, service.ErrReceiptsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the status for err. Unexpected errors are logged with fields.
func (h *Handler) fail(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
	} else {
		h.logger.Debug(msg, append(fields, zap.Error(err))...)
	}
	http.Error(w, http.StatusText(status), status)
}

func badRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// decode reads a JSON body into v and runs its validation rules.
func decode(r *http.Request, v validation.Validatable) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return v.Validate()
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
