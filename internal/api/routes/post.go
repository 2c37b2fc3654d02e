package routes

import (
	"Inkwell/internal/api/handlers/post"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/posts"

	"github.com/go-chi/chi/v5"
)

// RegisterPostRoutes registers post endpoints on the router.
// Reads are public, writes and the likes ledger require a bearer token.
func RegisterPostRoutes(r chi.Router, service posts.Service, authMiddleware *middleware.AuthMiddleware) {
	// Initialize handlers
	createHandler := post.NewCreateHandler(service)
	getHandler := post.NewGetHandler(service)
	updateHandler := post.NewUpdateHandler(service)
	deleteHandler := post.NewDeleteHandler(service)
	likeHandler := post.NewLikeHandler(service)

	r.Get("/tags", getHandler.HandleTags)
	r.Get("/posts", getHandler.HandleList)
	r.Get("/posts/{id}", getHandler.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Post("/posts", createHandler.HandleCreate)
		r.Patch("/posts/{id}", updateHandler.HandleUpdate)
		r.Delete("/posts/{id}", deleteHandler.HandleDelete)

		// Static "like"/"unlike" segments win over {id} in chi's tree
		r.Patch("/posts/like/{id}", likeHandler.HandleLike)
		r.Patch("/posts/unlike/{id}", likeHandler.HandleUnlike)
	})
}
