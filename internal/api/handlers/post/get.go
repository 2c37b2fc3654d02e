package post

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/posts"
)

const (
	defaultPage = 1
	defaultSize = 5
)

// GetHandler serves the public read endpoints
type GetHandler struct {
	service posts.Service
}

// NewGetHandler creates a new read handler
func NewGetHandler(service posts.Service) *GetHandler {
	return &GetHandler{
		service: service,
	}
}

// HandleGet handles GET /posts/{id}
// Every successful call counts as one view.
func (h *GetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, post)
}

// HandleList handles GET /posts?page=&size=&sort=&tag=
// Response: { "currentPage", "numberOfPages", "data": [...] }
func (h *GetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, ok := intParam(w, query.Get("page"), "page", defaultPage)
	if !ok {
		return
	}
	size, ok := intParam(w, query.Get("size"), "size", defaultSize)
	if !ok {
		return
	}

	result, err := h.service.ListPosts(r.Context(), posts.ListQuery{
		Page: page,
		Size: size,
		Sort: query.Get("sort"),
		Tag:  query.Get("tag"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, result)
}

// HandleTags handles GET /tags
// Response: up to five tags sampled from the newest posts
func (h *GetHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.RecentTags(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, tags)
}

// intParam parses an optional integer query parameter, writing a 400 on garbage
func intParam(w http.ResponseWriter, raw, name string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "ValidationError", name+" must be an integer")
		return 0, false
	}
	return n, true
}
