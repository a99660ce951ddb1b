package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/npi-leads/internal/infra/http/handlers"
	"github.com/xavierca1/npi-leads/internal/infra/http/middleware"
)

type RouterDeps struct {
	Sync      *handlers.SyncHandler
	Upload    *handlers.UploadHandler
	Providers *handlers.ProviderHandler
	Health    *handlers.HealthHandler

	AllowedOrigins []string
	// SyncRateLimit is requests per minute per client on the sync routes; 0
	// disables limiting.
	SyncRateLimit int
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", deps.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.SyncRateLimit > 0 {
				r.Use(middleware.NewRateLimiter(deps.SyncRateLimit, time.Minute).Middleware)
			}
			r.Post("/sync", deps.Sync.Handle)
			r.Post("/sync/jobs", deps.Sync.HandleEnqueue)
		})
		r.Post("/upload", deps.Upload.HandleFile)
		r.Post("/upload/rows", deps.Upload.HandleRows)
		r.Post("/providers/save-all", deps.Providers.HandleSaveAll)
	})

	return r
}
