package routes

import (
	"net/http"
	"os"

	"Inkwell/internal/api/handlers/upload"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/assets"

	"github.com/go-chi/chi/v5"
)

// RegisterUploadRoutes registers image upload endpoints and serves stored
// renditions read-only from dir under /uploads/
func RegisterUploadRoutes(r chi.Router, store assets.Store, dir string, maxBytes int64, authMiddleware *middleware.AuthMiddleware) {
	h := upload.NewHandler(store, maxBytes)

	r.With(authMiddleware.RequireAuth).Post("/upload", h.HandleUpload)
	r.With(authMiddleware.RequireAuth).Delete("/upload/{imageUrl}", h.HandleDelete)

	files := http.StripPrefix(assets.URLPrefix, http.FileServer(noListing{http.Dir(dir)}))
	r.Get(assets.URLPrefix+"*", files.ServeHTTP)
}

// noListing hides directory indexes of the upload dir
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
