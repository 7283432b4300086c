package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/ratinggame/internal/api/middleware"
	"github.com/mcoot/ratinggame/internal/api/request"
	"github.com/mcoot/ratinggame/internal/api/response"
	"github.com/mcoot/ratinggame/internal/services/auth"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	auth   *auth.Service
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, logger: logger}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RegisterResponse{
		Message: "Registration successful",
		ID:      string(id),
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	login, err := h.auth.Login(r.Context(), req.Username, req.Password, middleware.ClientIP(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LoginResponse{
		Token:  login.Token,
		UserID: string(login.UserID),
		Role:   string(login.Role),
	})
}
