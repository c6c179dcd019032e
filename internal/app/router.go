package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/broshop/broshop/internal/catalog"
	"github.com/broshop/broshop/internal/media"
	"github.com/broshop/broshop/internal/stats"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	CatalogHandler *catalog.Handler
	StatsHandler   *stats.Handler
	MediaHandler   *media.Handler
}

// NewRouter constructs the chi.Router for the shop API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/products", params.CatalogHandler.List)
	r.Get("/products/{id}", params.CatalogHandler.Get)
	r.Post("/views", params.CatalogHandler.RecordView)
	r.Get("/stats", params.StatsHandler.Get)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/products", params.CatalogHandler.AdminList)
		r.Post("/products", params.CatalogHandler.Create)
		r.Put("/products/{id}", params.CatalogHandler.Update)
		r.Post("/upload", params.MediaHandler.Upload)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", params.MediaHandler.FileServer()))

	return r
}
