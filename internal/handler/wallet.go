package handler

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/middleware"
	"github.com/amesupakorn/eLottery/internal/model"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// GetWallet returns the balance of the current user.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "get wallet error", zap.Int64("user_id", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, newWalletResponse(wallet))
}

// Deposit credits the wallet of the current user.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req amountRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	wallet, tx, err := h.service.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		h.fail(w, err, "deposit error", zap.Int64("user_id", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, ledgerResponse{
		Wallet:      newWalletResponse(wallet),
		Transaction: newTransactionResponse(tx),
	})
}

// Withdraw debits the wallet of the current user.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req amountRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	wallet, tx, err := h.service.Withdraw(r.Context(), userID, req.Amount, req.PaymentMethod)
	if err != nil {
		h.fail(w, err, "withdraw error", zap.Int64("user_id", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, ledgerResponse{
		Wallet:      newWalletResponse(wallet),
		Transaction: newTransactionResponse(tx),
	})
}

// parseTime accepts RFC 3339 or a plain date. A plain date used as an upper
// bound covers the whole day.
func parseTime(s string, upper bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseTransactionFilter(r *http.Request) (model.TransactionFilter, bool) {
	q := r.URL.Query()
	f := model.TransactionFilter{Query: q.Get("q"), Limit: defaultHistoryLimit}

	var err error
	if f.From, err = parseTime(q.Get("from"), false); err != nil {
		return f, false
	}
	if f.To, err = parseTime(q.Get("to"), true); err != nil {
		return f, false
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return f, false
		}
		f.Limit = min(n, maxHistoryLimit)
	}
	return f, true
}

// TransactionHistory lists ledger entries of the current user.
func (h *Handler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	f, ok := parseTransactionFilter(r)
	if !ok {
		badRequest(w)
		return
	}

	txs, err := h.service.TransactionHistory(r.Context(), userID, f)
	if err != nil {
		h.fail(w, err, "transaction history error", zap.Int64("user_id", userID))
		return
	}

	if len(txs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for i := range txs {
		resp = append(resp, newTransactionResponse(&txs[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}
