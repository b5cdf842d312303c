package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-ocr-inventory/internal/config"
	"go-ocr-inventory/internal/handler"
	"go-ocr-inventory/internal/metrics"
	"go-ocr-inventory/internal/middleware"
)

type Handlers struct {
	Documents *handler.DocumentsHandler
	Upload    *handler.UploadHandler
	Status    *handler.StatusHandler
	Download  *handler.DownloadHandler
	Events    *handler.EventsHandler
	Docs      *handler.DocsHandler
}

func New(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.UploadRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	r.Route("/api/v1", func(api chi.Router) {
		// Long-lived routes stay outside the request timeout.
		api.With(
			rateLimitMiddleware.UploadHandler,
			middleware.StreamingTimeout(cfg.UploadTimeout, cfg.UploadIdleTimeout),
		).Post("/uploads", h.Upload.Upload)
		api.Get("/events", h.Events.Serve)

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))

			api.Get("/documents", h.Documents.List)
			api.Post("/documents/refresh", h.Documents.Refresh)
			api.Get("/documents/*", h.Documents.Get)
			api.Delete("/documents/*", h.Documents.Delete)

			api.Get("/uploads/session", h.Upload.Session)

			api.Get("/status", h.Status.Messages)
			api.Get("/status/backend", h.Status.Backend)

			api.Get("/files/download/*", h.Download.Download)
		})
	})

	return r
}
