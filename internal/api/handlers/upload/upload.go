// Package upload serves image uploads into the asset store.
package upload

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/assets"
)

// FormField is the multipart field carrying the image
const FormField = "image"

// multipartOverhead covers boundaries and part headers on top of the file itself
const multipartOverhead = 64 << 10

// Handler handles image uploads and removals
type Handler struct {
	store    assets.Store
	maxBytes int64
}

// NewHandler creates an upload handler accepting files up to maxBytes
func NewHandler(store assets.Store, maxBytes int64) *Handler {
	return &Handler{
		store:    store,
		maxBytes: maxBytes,
	}
}

// HandleUpload handles POST /upload (multipart/form-data, field "image")
// Response: { "url": "/uploads/<name>.jpg" }
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r) == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	limit := h.maxBytes + multipartOverhead
	if r.ContentLength > limit {
		writeTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile(FormField)
	if err != nil {
		if handlers.IsBodyTooLarge(err) {
			writeTooLarge(w)
			return
		}
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError",
			"multipart field \"image\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	// Read one byte past the limit to detect oversized parts
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		if handlers.IsBodyTooLarge(err) {
			writeTooLarge(w)
			return
		}
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", "Failed to read upload")
		return
	}
	if int64(len(data)) > h.maxBytes {
		writeTooLarge(w)
		return
	}

	ref, err := h.store.Save(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		handleStoreError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]string{"url": ref})
}

// HandleDelete handles DELETE /upload/{imageUrl}
// imageUrl is the stored name or the full /uploads/ reference, path-escaped.
// Response: 200 text acknowledgement, also when the asset was already gone.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r) == "" {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	ref, err := url.PathUnescape(chi.URLParam(r, "imageUrl"))
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", "Invalid image reference")
		return
	}

	if err := h.store.Delete(r.Context(), ref); err != nil {
		handleStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Image deleted"))
}

func writeTooLarge(w http.ResponseWriter) {
	handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", "Upload too large")
}

// handleStoreError maps asset store errors to HTTP responses
func handleStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assets.ErrUnsupportedFormat):
		handlers.WriteError(w, http.StatusUnsupportedMediaType, "UnsupportedMediaType",
			"Only JPEG, PNG, WebP and GIF images are accepted")

	case errors.Is(err, assets.ErrImageTooLarge):
		handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
			"Image dimensions too large")

	case errors.Is(err, assets.ErrEmptyUpload):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", "Upload is empty")

	case errors.Is(err, assets.ErrProcessingFailed):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", "Image could not be decoded")

	case errors.Is(err, assets.ErrInvalidRef):
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", "Invalid image reference")

	default:
		slog.Error("[ASSETS] unexpected error in upload handler", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}
