package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/middleware"
	"github.com/amesupakorn/eLottery/internal/model"
)

func (h *Handler) startSession(w http.ResponseWriter, status int, u *model.User) {
	token, err := h.authMiddleware.SetAuthCookie(w, u.ID, u.Email)
	if err != nil {
		h.logger.Error("sign session", zap.Int64("user_id", u.ID), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, status, authResponse{User: newUserResponse(u), Token: token})
}

// SignUp registers a user and starts a session.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	u, err := h.service.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.fail(w, err, "register user error")
		return
	}

	h.startSession(w, http.StatusCreated, u)
}

// SignIn checks credentials and starts a session.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	u, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err, "sign in error")
		return
	}

	h.startSession(w, http.StatusOK, u)
}

// SignOut revokes the current session token.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.service.RevokeSession(r.Context(), s.Token, s.ExpiresAt); err != nil {
		h.fail(w, err, "revoke session error", zap.Int64("user_id", s.UserID))
		return
	}

	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// Me returns the signed-in user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	u, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "current user error", zap.Int64("user_id", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, newUserResponse(u))
}

// Subscribe sets the prize notification preference of the user.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req subscribeRequest
	if err := decode(r, &req); err != nil {
		badRequest(w)
		return
	}

	u, err := h.service.SetNotifications(r.Context(), userID, *req.OptIn)
	if err != nil {
		h.fail(w, err, "set notifications error", zap.Int64("user_id", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, newUserResponse(u))
}
