package routes

import (
	"forecast-ingest/edi/internal/api"
	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, apiCfg config.APIConfig, handlers *api.Handlers, jobsHandler *api.JobsHandler) {
	limiter := middleware.NewRateLimiter(apiCfg.RateLimitRPS, apiCfg.RateLimitBurst, "127.0.0.1")

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(limiter.Middleware)
		v1.Use(middleware.AuthMiddleware([]byte(apiCfg.JWTSigningKey))) // every v1 route needs a token

		v1.Group(func(read chi.Router) {
			read.Use(middleware.RequirePermission(constants.ActionRead))
			read.Get("/jobs/status", jobsHandler.GetJobStatus())
			read.Get("/jobs/runs/{run_id}", jobsHandler.GetRunLog())
		})

		v1.Group(func(write chi.Router) {
			write.Use(middleware.RequirePermission(constants.ActionWrite))
			write.Post("/jobs/run", jobsHandler.TriggerRun())
			write.Delete("/config/cache", handlers.ClearConfigCache())
			write.Delete("/config/cache/{partner}", handlers.InvalidatePartnerConfig())
			write.Post("/imports/{partner}", handlers.ImportTabular())
		})
	})
}
