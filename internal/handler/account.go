package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/account"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// AccountHandler handles registration and login.
type AccountHandler struct {
	accounts *account.Service
	logger   *logger.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(svc *account.Service, log *logger.Logger) *AccountHandler {
	return &AccountHandler{accounts: svc, logger: logger.OrNop(log)}
}

// Register handles POST /register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.accounts.Register(r.Context(), req)
	switch {
	case errors.Is(err, account.ErrUserExists):
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	case err != nil:
		h.logger.Warn("registration failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "registration failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "✅ Registration successful",
		"user":    user,
	})
}

// Login handles POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tok, err := h.accounts.Login(r.Context(), req)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "✅ Login successful",
		"token":      tok.Token,
		"expires_at": tok.ExpiresAt,
		"user":       tok.User,
	})
}
