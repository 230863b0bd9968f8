package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/service"
)

// ListDraws lists draws, optionally filtered by status.
func (h *Handler) ListDraws(w http.ResponseWriter, r *http.Request) {
	status := model.DrawStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		badRequest(w)
		return
	}

	draws, err := h.service.ListDraws(r.Context(), status)
	if err != nil {
		h.fail(w, err, "list draws error")
		return
	}

	if len(draws) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]drawResponse, 0, len(draws))
	for i := range draws {
		resp = append(resp, newDrawResponse(&draws[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetDraw returns a draw with its tiers and results.
func (h *Handler) GetDraw(w http.ResponseWriter, r *http.Request) {
	drawID, ok := pathID(r, "id")
	if !ok {
		badRequest(w)
		return
	}

	det, err := h.service.GetDraw(r.Context(), drawID)
	if err != nil {
		h.fail(w, err, "get draw error", zap.Int64("draw_id", drawID))
		return
	}

	h.writeJSON(w, http.StatusOK, newDrawDetailsResponse(det))
}

// CurrentDraw returns the draw operators act on by default.
func (h *Handler) CurrentDraw(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.CurrentDraw(r.Context())
	if err != nil {
		h.fail(w, err, "current draw error")
		return
	}
	h.writeJSON(w, http.StatusOK, newDrawResponse(d))
}

// CurrentResults returns the drawn numbers of the current draw.
func (h *Handler) CurrentResults(w http.ResponseWriter, r *http.Request) {
	det, err := h.service.CurrentResults(r.Context())
	if err != nil {
		h.fail(w, err, "current results error")
		return
	}
	h.writeJSON(w, http.StatusOK, newDrawDetailsResponse(det))
}

// CreateDraw schedules a new draw.
func (h *Handler) CreateDraw(w http.ResponseWriter, r *http.Request) {
	var req createDrawRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	det, err := h.service.CreateDraw(r.Context(), req.newDraw())
	if err != nil {
		h.fail(w, err, "create draw error", zap.String("draw_code", req.DrawCode))
		return
	}

	h.writeJSON(w, http.StatusCreated, newDrawDetailsResponse(det))
}

// drawTarget returns the draw id in the path, or zero for the current draw.
func drawTarget(r *http.Request) (int64, bool) {
	if chi.URLParam(r, "id") == "" {
		return 0, true
	}
	return pathID(r, "id")
}

// LockDraw stops ticket sales of a draw.
func (h *Handler) LockDraw(w http.ResponseWriter, r *http.Request) {
	drawID, ok := drawTarget(r)
	if !ok {
		badRequest(w)
		return
	}

	d, err := h.service.LockDraw(r.Context(), drawID)
	if err != nil {
		h.fail(w, err, "lock draw error", zap.Int64("draw_id", drawID))
		return
	}
	h.writeJSON(w, http.StatusOK, newDrawResponse(d))
}

// RunDraw draws the winning numbers.
func (h *Handler) RunDraw(w http.ResponseWriter, r *http.Request) {
	drawID, ok := drawTarget(r)
	if !ok {
		badRequest(w)
		return
	}

	det, err := h.service.RunDraw(r.Context(), drawID)
	if err != nil {
		h.fail(w, err, "run draw error", zap.Int64("draw_id", drawID))
		return
	}
	h.writeJSON(w, http.StatusOK, newDrawDetailsResponse(det))
}

// PublishDraw settles a draw and pays the winners.
func (h *Handler) PublishDraw(w http.ResponseWriter, r *http.Request) {
	drawID, ok := drawTarget(r)
	if !ok {
		badRequest(w)
		return
	}

	st, err := h.service.PublishDraw(r.Context(), drawID)
	if err != nil {
		h.fail(w, err, "publish draw error", zap.Int64("draw_id", drawID))
		return
	}
	h.writeJSON(w, http.StatusOK, newSettlementResponse(st))
}

// Flow locks, runs and publishes the current draw.
func (h *Handler) Flow(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Flow(r.Context())
	if err == nil {
		h.writeJSON(w, http.StatusOK, newFlowResponse(res))
		return
	}

	var stepErr *service.StepError
	if !errors.As(err, &stepErr) {
		h.fail(w, err, "draw flow error")
		return
	}

	status := statusFor(stepErr.Err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("draw flow error", zap.String("step", stepErr.Step), zap.Error(stepErr.Err))
	}

	resp := newFlowResponse(res)
	resp.Step = stepErr.Step
	resp.Error = http.StatusText(status)
	h.writeJSON(w, status, resp)
}
