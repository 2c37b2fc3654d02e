package routes

import (
	"Inkwell/internal/api/handlers/user"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/users"

	"github.com/go-chi/chi/v5"
)

// RegisterUserRoutes registers account endpoints under /auth
func RegisterUserRoutes(r chi.Router, service users.UserService, authMiddleware *middleware.AuthMiddleware) {
	h := user.NewAccountHandler(service)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.With(authMiddleware.RequireAuth).Get("/me", h.HandleMe)
	})
}
