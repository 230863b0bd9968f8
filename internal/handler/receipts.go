package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/middleware"
)

// GenerateReceipt issues the receipt of a purchase owned by the current user.
func (h *Handler) GenerateReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req receiptRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	rc, err := h.service.IssueReceipt(r.Context(), userID, req.PurchaseID)
	if err != nil {
		h.fail(w, err, "issue receipt error", zap.Int64("user_id", userID), zap.Int64("purchase_id", req.PurchaseID))
		return
	}

	h.writeJSON(w, http.StatusOK, receiptResponse{
		ReceiptID:  rc.ID,
		PurchaseID: rc.PurchaseID,
		DrawCode:   rc.DrawCode,
		CreatedAt:  rc.CreatedAt,
	})
}

// ReceiptLink returns a short-lived signed download link.
func (h *Handler) ReceiptLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	receiptID := chi.URLParam(r, "id")
	if receiptID == "" {
		badRequest(w)
		return
	}

	link, err := h.service.ReceiptLink(r.Context(), userID, receiptID)
	if err != nil {
		h.fail(w, err, "receipt link error", zap.Int64("user_id", userID), zap.String("receipt_id", receiptID))
		return
	}

	h.writeJSON(w, http.StatusOK, link)
}

// VerifyReceipt confirms that a printed receipt id was issued.
func (h *Handler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID := chi.URLParam(r, "id")

	rc, err := h.service.VerifyReceipt(r.Context(), receiptID)
	if err != nil {
		h.fail(w, err, "verify receipt error", zap.String("receipt_id", receiptID))
		return
	}

	h.writeJSON(w, http.StatusOK, receiptResponse{
		ReceiptID:  rc.ID,
		PurchaseID: rc.PurchaseID,
		DrawCode:   rc.DrawCode,
		CreatedAt:  rc.CreatedAt,
	})
}

// OpenReceipt streams the document a signed link points at.
func (h *Handler) OpenReceipt(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		badRequest(w)
		return
	}

	body, rc, err := h.service.OpenReceipt(r.Context(), token)
	if err != nil {
		h.fail(w, err, "open receipt error")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="receipt-`+rc.ID+`.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream receipt", zap.String("receipt_id", rc.ID), zap.Error(err))
	}
}
