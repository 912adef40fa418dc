package handlers

import (
	"net/http"

	"greekmatch-backend/internal/middleware"
	"greekmatch-backend/internal/services"
)

// AuthHandler handles registration and sessions
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to register user")
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "Failed to sign in")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), middleware.GetToken(r.Context())); err != nil {
		respondServiceError(w, err, "Failed to sign out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
