package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/assets"
	"Inkwell/internal/core/posts"
	"Inkwell/internal/core/users"
)

// Deps carries everything the HTTP surface needs
type Deps struct {
	Posts          posts.Service
	Users          users.UserService
	Assets         assets.Store
	Tokens         middleware.TokenVerifier
	RateLimiter    *middleware.RateLimiter // Optional: nil disables limiting
	UploadDir      string
	AllowedOrigins []string
	UploadMaxBytes int64
}

// NewRouter assembles the full API router
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(corsHandler(deps.AllowedOrigins))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware)
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens)

	RegisterUserRoutes(r, deps.Users, authMiddleware)
	RegisterPostRoutes(r, deps.Posts, authMiddleware)
	RegisterUploadRoutes(r, deps.Assets, deps.UploadDir, deps.UploadMaxBytes, authMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// corsHandler lets the SPA call the API with a bearer token
func corsHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		MaxAge: 300, // 5 minutes
	})
}
