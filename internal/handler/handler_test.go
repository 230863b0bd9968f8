package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/cache"
	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/middleware"
	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/receipt"
	"github.com/amesupakorn/eLottery/internal/service"
)

const testOperatorKey = "operator-key"

type stubService struct {
	user    *model.User
	userErr error

	wallet    *model.Wallet
	ledgerTx  *model.AccountTransaction
	walletErr error

	purchase       *service.PurchaseResult
	purchaseErr    error
	idempotencyKey string

	tickets []model.TicketPurchase
	history []model.TicketHistoryItem
	txs     []model.AccountTransaction
	filter  model.TransactionFilter

	draws   []model.Draw
	details *service.DrawDetails
	drawErr error
	drawID  int64

	settlement *draw.Settlement
	flow       *service.FlowResult
	flowErr    error

	revoked string
}

func (s *stubService) Ping(ctx context.Context) error { return nil }

func (s *stubService) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) SetNotifications(ctx context.Context, userID int64, optIn bool) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) RevokeSession(ctx context.Context, token string, expiresAt time.Time) error {
	s.revoked = token
	return nil
}

func (s *stubService) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.wallet, s.walletErr
}

func (s *stubService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Wallet, *model.AccountTransaction, error) {
	return s.wallet, s.ledgerTx, s.walletErr
}

func (s *stubService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*model.Wallet, *model.AccountTransaction, error) {
	return s.wallet, s.ledgerTx, s.walletErr
}

func (s *stubService) TransactionHistory(ctx context.Context, userID int64, f model.TransactionFilter) ([]model.AccountTransaction, error) {
	s.filter = f
	return s.txs, nil
}

func (s *stubService) PreviewPurchase(ctx context.Context, drawCode string, quantity int64) (*service.PurchasePreview, error) {
	return &service.PurchasePreview{DrawCode: drawCode, Quantity: quantity, RangeStart: 100000, RangeEnd: 100000 + quantity - 1}, nil
}

func (s *stubService) Purchase(ctx context.Context, userID int64, drawCode string, quantity int64, idempotencyKey string) (*service.PurchaseResult, error) {
	s.idempotencyKey = idempotencyKey
	return s.purchase, s.purchaseErr
}

func (s *stubService) CancelPurchase(ctx context.Context, userID, purchaseID int64) (*model.TicketPurchase, *model.Wallet, error) {
	return nil, nil, model.ErrReceiptOrPurchaseNotFound
}

func (s *stubService) OwnedTickets(ctx context.Context, userID int64) ([]model.TicketPurchase, error) {
	return s.tickets, nil
}

func (s *stubService) TicketHistory(ctx context.Context, userID int64, status model.PurchaseStatus) ([]model.TicketHistoryItem, error) {
	return s.history, nil
}

func (s *stubService) CreateDraw(ctx context.Context, nd service.NewDraw) (*service.DrawDetails, error) {
	return s.details, s.drawErr
}

func (s *stubService) ListDraws(ctx context.Context, status model.DrawStatus) ([]model.Draw, error) {
	return s.draws, nil
}

func (s *stubService) GetDraw(ctx context.Context, drawID int64) (*service.DrawDetails, error) {
	s.drawID = drawID
	return s.details, s.drawErr
}

func (s *stubService) CurrentDraw(ctx context.Context) (*model.Draw, error) {
	if s.details == nil {
		return nil, model.ErrDrawNotFound
	}
	return &s.details.Draw, nil
}

func (s *stubService) CurrentResults(ctx context.Context) (*service.DrawDetails, error) {
	return s.details, s.drawErr
}

func (s *stubService) LockDraw(ctx context.Context, drawID int64) (*model.Draw, error) {
	s.drawID = drawID
	if s.drawErr != nil {
		return nil, s.drawErr
	}
	return &s.details.Draw, nil
}

func (s *stubService) RunDraw(ctx context.Context, drawID int64) (*service.DrawDetails, error) {
	s.drawID = drawID
	return s.details, s.drawErr
}

func (s *stubService) PublishDraw(ctx context.Context, drawID int64) (*draw.Settlement, error) {
	s.drawID = drawID
	return s.settlement, s.drawErr
}

func (s *stubService) Flow(ctx context.Context) (*service.FlowResult, error) {
	return s.flow, s.flowErr
}

func (s *stubService) IssueReceipt(ctx context.Context, userID, purchaseID int64) (*model.Receipt, error) {
	return nil, service.ErrReceiptsDisabled
}

func (s *stubService) ReceiptLink(ctx context.Context, userID int64, receiptID string) (receipt.Link, error) {
	return receipt.Link{URL: "http://localhost/api/receipts/open?token=t"}, nil
}

func (s *stubService) VerifyReceipt(ctx context.Context, receiptID string) (*model.Receipt, error) {
	return nil, model.ErrReceiptOrPurchaseNotFound
}

func (s *stubService) OpenReceipt(ctx context.Context, token string) (io.ReadCloser, *model.Receipt, error) {
	if token != "good" {
		return nil, nil, receipt.ErrInvalidLink
	}
	return io.NopCloser(strings.NewReader("RECEIPT")), &model.Receipt{ID: "r-1"}, nil
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret", nil)

	return NewHandler(svc, logger, auth, testOperatorKey)
}

// sessionCookie signs a session for userID the way SignIn does.
func sessionCookie(t *testing.T, h *Handler, userID int64) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := h.authMiddleware.SetAuthCookie(rec, userID, "user@example.com")
	require.NoError(t, err)
	return rec.Result().Cookies()[0]
}

func do(h *Handler, req *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		err        error
		wantStatus int
	}{
		{
			name:       "created",
			body:       signUpRequest{Email: "new@example.com", Password: "password123"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid email",
			body:       signUpRequest{Email: "not-an-email", Password: "password123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short password",
			body:       signUpRequest{Email: "new@example.com", Password: "short"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duplicate",
			body:       signUpRequest{Email: "new@example.com", Password: "password123"},
			err:        model.ErrUserExists,
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{user: &model.User{ID: 7, Email: "new@example.com"}, userErr: tt.err}
			h := newTestHandler(t, svc)

			res := do(h, httptest.NewRequest(http.MethodPost, "/api/auth/signup", jsonBody(t, tt.body)))
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatus, res.StatusCode)
			if tt.wantStatus == http.StatusCreated {
				require.NotEmpty(t, res.Cookies())
				assert.Equal(t, middleware.AuthCookieName, res.Cookies()[0].Name)

				var got authResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
				assert.Equal(t, int64(7), got.User.ID)
				assert.NotEmpty(t, got.Token)
			}
		})
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	h := newTestHandler(t, &stubService{userErr: model.ErrInvalidCredentials})

	res := do(h, httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		jsonBody(t, signInRequest{Email: "a@example.com", Password: "wrong"})))
	defer res.Body.Close()

	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	cookie := sessionCookie(t, h, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(cookie)
	res := do(h, req)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, cookie.Value, svc.revoked)
}

func TestWallet_RequiresSession(t *testing.T) {
	h := newTestHandler(t, &stubService{wallet: &model.Wallet{ID: 1, Balance: decimal.NewFromInt(250), Currency: "THB"}})

	res := do(h, httptest.NewRequest(http.MethodGet, "/api/wallet", nil))
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
	req.AddCookie(sessionCookie(t, h, 1))
	res = do(h, req)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var got walletResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(250)))
}

func TestDeposit_InvalidAmount(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	for _, body := range []string{`{"amount":0}`, `{"amount":"-5"}`, `{"amount":1.234}`, `{"amount":"abc"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/wallet/deposit", strings.NewReader(body))
		req.AddCookie(sessionCookie(t, h, 1))
		res := do(h, req)
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
	}
}

func TestPurchase(t *testing.T) {
	now := time.Now().UTC()
	ok := &service.PurchaseResult{
		Purchase:    model.TicketPurchase{ID: 3, DrawCode: "20260101-001", RangeStart: 100000, RangeEnd: 100004, Status: model.PurchaseStatusOwned, PurchasedAt: now},
		Wallet:      model.Wallet{ID: 1, Balance: decimal.NewFromInt(500)},
		Transaction: model.AccountTransaction{ID: 9, EntryType: model.EntryPurchase, Amount: decimal.NewFromInt(500)},
	}

	tests := []struct {
		name       string
		body       any
		err        error
		wantStatus int
	}{
		{"created", purchaseRequest{DrawCode: "20260101-001", Quantity: 5}, nil, http.StatusCreated},
		{"bad draw code", purchaseRequest{DrawCode: "2026-1", Quantity: 5}, nil, http.StatusBadRequest},
		{"zero quantity", purchaseRequest{DrawCode: "20260101-001"}, nil, http.StatusBadRequest},
		{"insufficient funds", purchaseRequest{DrawCode: "20260101-001", Quantity: 5}, model.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"draw locked", purchaseRequest{DrawCode: "20260101-001", Quantity: 5}, model.ErrInvalidStatus, http.StatusConflict},
		{"in flight", purchaseRequest{DrawCode: "20260101-001", Quantity: 5}, cache.ErrInFlight, http.StatusConflict},
		{"unknown draw", purchaseRequest{DrawCode: "20260101-001", Quantity: 5}, model.ErrDrawNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{purchase: ok, purchaseErr: tt.err}
			h := newTestHandler(t, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/lottery/purchase", jsonBody(t, tt.body))
			req.Header.Set(IdempotencyHeader, "key-1")
			req.AddCookie(sessionCookie(t, h, 1))
			res := do(h, req)
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatus, res.StatusCode)
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, "key-1", svc.idempotencyKey)

				var got purchaseResultResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
				assert.Equal(t, int64(5), got.Purchase.Quantity)
				assert.Equal(t, int64(100000), got.Purchase.RangeStart)
			}
		})
	}
}

func TestPreviewPurchase(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := do(h, httptest.NewRequest(http.MethodGet, "/api/lottery/preview?drawCode=20260101-001&quantity=3", nil))
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got previewResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, int64(100002), got.RangeEnd)

	res = do(h, httptest.NewRequest(http.MethodGet, "/api/lottery/preview?drawCode=20260101-001&quantity=x", nil))
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestLists_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	cookie := sessionCookie(t, h, 1)

	for _, path := range []string{"/api/lottery", "/api/history/tickets", "/api/history/transactions", "/api/draws"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(cookie)
		res := do(h, req)
		res.Body.Close()
		if res.StatusCode != http.StatusNoContent {
			t.Fatalf("%s: status = %d, want %d", path, res.StatusCode, http.StatusNoContent)
		}
	}
}

func TestHistory_BadQuery(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	cookie := sessionCookie(t, h, 1)

	for _, path := range []string{
		"/api/history/tickets?status=LOST",
		"/api/history/transactions?from=yesterday",
		"/api/history/transactions?limit=0",
		"/api/draws?status=OPEN",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(cookie)
		res := do(h, req)
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, path)
	}
}

func TestTransactionHistory_Filter(t *testing.T) {
	svc := &stubService{txs: []model.AccountTransaction{{ID: 1, EntryType: model.EntryDeposit}}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/history/transactions?q=prize&from=2026-01-01&to=2026-01-31&limit=1000", nil)
	req.AddCookie(sessionCookie(t, h, 1))
	res := do(h, req)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "prize", svc.filter.Query)
	assert.Equal(t, maxHistoryLimit, svc.filter.Limit)
	require.NotNil(t, svc.filter.From)
	require.NotNil(t, svc.filter.To)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC), *svc.filter.To)
}

func TestOperatorRoutes(t *testing.T) {
	det := &service.DrawDetails{Draw: model.Draw{ID: 4, Code: "20260101-001", Status: model.DrawStatusDrawing}}

	tests := []struct {
		name       string
		path       string
		key        string
		err        error
		wantStatus int
		wantDrawID int64
	}{
		{"missing key", "/api/draws/current/run", "", nil, http.StatusForbidden, 0},
		{"wrong key", "/api/draws/current/run", "nope", nil, http.StatusForbidden, 0},
		{"current", "/api/draws/current/run", testOperatorKey, nil, http.StatusOK, 0},
		{"by id", "/api/draws/4/run", testOperatorKey, nil, http.StatusOK, 4},
		{"already run", "/api/draws/4/run", testOperatorKey, model.ErrResultsAlreadyExist, http.StatusConflict, 4},
		{"lock wrong state", "/api/draws/4/lock", testOperatorKey, model.ErrInvalidStatus, http.StatusConflict, 4},
		{"nothing to publish", "/api/draws/current/publish", testOperatorKey, model.ErrNoResultsToPublish, http.StatusConflict, 0},
		{"no current draw", "/api/draws/current/lock", testOperatorKey, model.ErrDrawNotFound, http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{details: det, drawErr: tt.err, drawID: -1}
			h := newTestHandler(t, svc)

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(middleware.OperatorHeader, tt.key)
			}
			res := do(h, req)
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatus, res.StatusCode)
			if tt.wantStatus != http.StatusForbidden {
				assert.Equal(t, tt.wantDrawID, svc.drawID)
			}
		})
	}
}

func TestPublishDraw_Response(t *testing.T) {
	d := &model.Draw{ID: 4, Code: "20260101-001", Status: model.DrawStatusPublished}
	svc := &stubService{settlement: &draw.Settlement{
		Draw: d,
		Payouts: []draw.Payout{
			{TierName: "1st Prize", TicketNumber: "100001", UserID: 2, Amount: decimal.NewFromInt(5000)},
			{TierName: "3rd Prize", TicketNumber: "100002", UserID: 3, Amount: decimal.NewFromInt(100)},
		},
	}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/draws/4/publish", nil)
	req.Header.Set(middleware.OperatorHeader, testOperatorKey)
	res := do(h, req)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got settlementResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Len(t, got.Payouts, 2)
	assert.True(t, got.TotalPaid.Equal(decimal.NewFromInt(5100)))
	assert.Equal(t, model.DrawStatusPublished, got.Draw.Status)
}

func TestFlow_StepError(t *testing.T) {
	svc := &stubService{
		flow:    &service.FlowResult{Locked: &model.Draw{ID: 1, Status: model.DrawStatusLocked}},
		flowErr: &service.StepError{Step: "run", Err: fmt.Errorf("wrapped: %w", model.ErrResultsAlreadyExist)},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/draws/current/flow", nil)
	req.Header.Set(middleware.OperatorHeader, testOperatorKey)
	res := do(h, req)
	defer res.Body.Close()

	require.Equal(t, http.StatusConflict, res.StatusCode)

	var got flowResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "run", got.Step)
	require.NotNil(t, got.Lock)
	assert.Nil(t, got.Run)
}

func TestCreateDraw_Validation(t *testing.T) {
	h := newTestHandler(t, &stubService{details: &service.DrawDetails{Draw: model.Draw{ID: 1}}})

	tests := []struct {
		body       string
		wantStatus int
	}{
		{`{"seedPrizeTiers":true}`, http.StatusCreated},
		{`{"draw_code":"20260101-001","tiers":[{"tier_name":"1st","prize_amount":"500","winners_count":1}]}`, http.StatusCreated},
		{`{"draw_code":"tomorrow"}`, http.StatusBadRequest},
		{`{"tiers":[{"tier_name":"","prize_amount":"500","winners_count":1}]}`, http.StatusBadRequest},
		{`{"tiers":[{"tier_name":"1st","prize_amount":"500","winners_count":0}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/draws/create", strings.NewReader(tt.body))
		req.Header.Set(middleware.OperatorHeader, testOperatorKey)
		res := do(h, req)
		res.Body.Close()
		assert.Equal(t, tt.wantStatus, res.StatusCode, tt.body)
	}
}

func TestReceipts(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	cookie := sessionCookie(t, h, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/generate", strings.NewReader(`{"purchase_id":3}`))
	req.AddCookie(cookie)
	res := do(h, req)
	res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	res = do(h, httptest.NewRequest(http.MethodGet, "/api/receipts/open?token=bad", nil))
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = do(h, httptest.NewRequest(http.MethodGet, "/api/receipts/open?token=good", nil))
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "RECEIPT", string(body))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "receipt-r-1.txt")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrInvalidAmount, http.StatusBadRequest},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrInsufficientFunds, http.StatusPaymentRequired},
		{model.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("get: %w", model.ErrWalletNotFound), http.StatusNotFound},
		{model.ErrDuplicateRequest, http.StatusConflict},
		{model.ErrDrawCodeConflict, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	res := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
