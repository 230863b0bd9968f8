package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/middleware"
	"github.com/amesupakorn/eLottery/internal/model"
)

// PreviewPurchase shows the range and price a purchase would get now.
func (h *Handler) PreviewPurchase(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quantity, err := strconv.ParseInt(q.Get("quantity"), 10, 64)
	if err != nil {
		badRequest(w)
		return
	}
	req := purchaseRequest{DrawCode: q.Get("drawCode"), Quantity: quantity}
	if err := req.Validate(); err != nil {
		badRequest(w)
		return
	}

	p, err := h.service.PreviewPurchase(r.Context(), req.DrawCode, req.Quantity)
	if err != nil {
		h.fail(w, err, "preview purchase error", zap.String("draw_code", req.DrawCode))
		return
	}

	h.writeJSON(w, http.StatusOK, previewResponse{
		DrawCode:   p.DrawCode,
		Quantity:   p.Quantity,
		RangeStart: p.RangeStart,
		RangeEnd:   p.RangeEnd,
		UnitPrice:  p.UnitPrice,
		TotalPrice: p.TotalPrice,
		Currency:   p.Currency,
	})
}

// Purchase buys a range of ticket numbers for the current user.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req purchaseRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	res, err := h.service.Purchase(r.Context(), userID, req.DrawCode, req.Quantity, key)
	if err != nil {
		h.fail(w, err, "purchase error",
			zap.Int64("user_id", userID),
			zap.String("draw_code", req.DrawCode),
			zap.Int64("quantity", req.Quantity))
		return
	}

	h.writeJSON(w, http.StatusCreated, purchaseResultResponse{
		Purchase:    newPurchaseResponse(&res.Purchase),
		Wallet:      newWalletResponse(&res.Wallet),
		Transaction: newTransactionResponse(&res.Transaction),
		ReceiptID:   res.ReceiptID,
	})
}

// OwnedTickets lists the OWNED purchases of the current user.
func (h *Handler) OwnedTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	tickets, err := h.service.OwnedTickets(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "owned tickets error", zap.Int64("user_id", userID))
		return
	}

	if len(tickets) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]purchaseResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, newPurchaseResponse(&tickets[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CancelPurchase refunds a purchase of the current user.
func (h *Handler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	purchaseID, ok := pathID(r, "id")
	if !ok {
		badRequest(w)
		return
	}

	p, wallet, err := h.service.CancelPurchase(r.Context(), userID, purchaseID)
	if err != nil {
		h.fail(w, err, "cancel purchase error", zap.Int64("user_id", userID), zap.Int64("purchase_id", purchaseID))
		return
	}

	h.writeJSON(w, http.StatusOK, cancelResponse{
		Purchase: newPurchaseResponse(p),
		Wallet:   newWalletResponse(wallet),
	})
}

// TicketHistory lists purchases of the current user with their prizes.
func (h *Handler) TicketHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	status := model.PurchaseStatus(strings.ToUpper(r.URL.Query().Get("status")))
	switch status {
	case "", model.PurchaseStatusOwned, model.PurchaseStatusCanceled, model.PurchaseStatusWin:
	default:
		badRequest(w)
		return
	}

	items, err := h.service.TicketHistory(r.Context(), userID, status)
	if err != nil {
		h.fail(w, err, "ticket history error", zap.Int64("user_id", userID))
		return
	}

	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]ticketHistoryResponse, 0, len(items))
	for i := range items {
		resp = append(resp, ticketHistoryResponse{
			Purchase: newPurchaseResponse(&items[i].Purchase),
			Status:   items[i].Status,
			Prizes:   newResultResponses(items[i].Prizes),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}
