package server

import (
	"net/http"

	"github.com/corpusworks/docindex/internal/api"
	"github.com/corpusworks/docindex/internal/api/handlers"
	"github.com/corpusworks/docindex/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	UploadHandler   *handlers.UploadHandler
	JobHandler      *handlers.JobHandler
	SearchHandler   *handlers.SearchHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", cfg.UploadHandler.Init)
			r.Post("/{id}/ingest", cfg.UploadHandler.Ingest)
		})

		r.Get("/jobs/{id}", cfg.JobHandler.Get)

		r.Get("/search", cfg.SearchHandler.Search)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Get("/{id}/chunks", cfg.DocumentHandler.GetChunks)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})
	})

	return r
}
