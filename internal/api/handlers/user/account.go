package user

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/users"
)

// Credentials bodies are tiny
const decodeLimit = 64 << 10

// AccountHandler serves registration, login and the current account
type AccountHandler struct {
	service users.UserService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service users.UserService) *AccountHandler {
	return &AccountHandler{
		service: service,
	}
}

// HandleRegister handles POST /auth/register
// Request body: { "email", "password", "fullName", "avatarUrl" }
// Response: the user plus "token"
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, resp)
}

// HandleLogin handles POST /auth/login
// Request body: { "email", "password" }
// Response: the user plus "token"
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /auth/me
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	user, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, user)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, decodeLimit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if handlers.IsBodyTooLarge(err) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", "Request body too large")
			return false
		}
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", "Invalid request body")
		return false
	}
	return true
}

// handleServiceError maps user service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case users.IsInvalidField(err):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", err.Error())

	case errors.Is(err, users.ErrInvalidCredentials):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidCredentials", "Invalid login or password")

	case errors.Is(err, users.ErrEmailTaken):
		handlers.WriteError(w, http.StatusConflict, "EmailTaken", "Email is already registered")

	case errors.Is(err, users.ErrUserNotFound):
		handlers.WriteError(w, http.StatusNotFound, "NotFound", "User not found")

	default:
		slog.Error("[AUTH] unexpected error in account handler", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}
