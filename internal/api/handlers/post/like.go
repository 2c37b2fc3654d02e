package post

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/posts"
)

// LikeHandler toggles the caller's like on a post
type LikeHandler struct {
	service posts.Service
}

// NewLikeHandler creates a new like handler
func NewLikeHandler(service posts.Service) *LikeHandler {
	return &LikeHandler{
		service: service,
	}
}

// HandleLike handles PATCH /posts/like/{id}
// Response: the updated likes array, 409 if already liked
func (h *LikeHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.LikePost)
}

// HandleUnlike handles PATCH /posts/unlike/{id}
// Response: the updated likes array, 409 if not liked
func (h *LikeHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.UnlikePost)
}

type ledgerOp func(ctx context.Context, id, userID string) ([]posts.Like, error)

func (h *LikeHandler) handle(w http.ResponseWriter, r *http.Request, op ledgerOp) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	likes, err := op(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, likes)
}
