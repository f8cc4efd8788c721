package routes

import (
	"net/http"
	"time"

	"forecast-ingest/edi/internal/api"
	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions carries everything the ops HTTP surface is built from
type RouterOptions struct {
	UpSince      time.Time
	API          config.APIConfig
	DB           *sqlx.DB
	HealthProbes map[string]api.HealthProbe
	Deps         *api.Dependencies
	Monitor      api.CycleRunner
	Gatherer     prometheus.Gatherer
}

func RegisterRoutes(opts RouterOptions) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Logging)
	r.Use(middleware.MetricsMiddleware(opts.Deps.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.API.Origins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(opts.DB, opts.HealthProbes, opts.UpSince))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	handlers := api.NewHandlers(opts.Deps)

	var stats api.TransactionSummarizer
	if opts.Deps.Repo.TransactionStats != nil {
		stats = opts.Deps.Repo.TransactionStats
	}
	jobsHandler := api.NewJobsHandler(opts.Monitor, stats, opts.Deps.Repo.Transactions)

	RegisterAPIRoutes(r, opts.API, handlers, jobsHandler)

	logging.Info("Router initialized", "allowed_origins", opts.API.Origins())
	return r
}
