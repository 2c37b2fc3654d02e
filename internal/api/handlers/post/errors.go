package post

import (
	"errors"
	"log/slog"
	"net/http"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/posts"
)

// handleServiceError maps service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case posts.IsValidationError(err):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", err.Error())

	case posts.IsNotFound(err):
		handlers.WriteError(w, http.StatusNotFound, "NotFound", "Post not found")

	case errors.Is(err, posts.ErrAlreadyLiked):
		handlers.WriteError(w, http.StatusConflict, "AlreadyLiked", "Post already liked")

	case errors.Is(err, posts.ErrNotLiked):
		handlers.WriteError(w, http.StatusConflict, "NotLiked", "Post has not yet been liked")

	default:
		// Don't leak internal error details to clients
		slog.Error("[POST] unexpected error in post handler", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}

// decodeLimit bounds JSON request bodies. Post text is capped at 100k bytes,
// so 1MB leaves room for title, tags and JSON escaping.
const decodeLimit = 1 << 20
