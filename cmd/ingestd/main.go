package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forecast-ingest/edi/internal/api"
	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/db"
	"forecast-ingest/edi/internal/jobs"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/metrics"
	"forecast-ingest/edi/internal/routes"
	"forecast-ingest/edi/internal/workers"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logging.Init(cfg.App.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	lock, err := jobs.AcquireInstanceLock(cfg.Monitor.LockFile)
	if errors.Is(err, jobs.ErrLockHeld) {
		logging.Info(constants.GetErrorMessage(constants.ErrCodeLockHeld), "lock_file", cfg.Monitor.LockFile)
		return
	}
	if err != nil {
		logging.Fatal("Failed to acquire instance lock", "error", err.Error())
	}
	defer lock.Release()

	logging.Info("ingestd starting up",
		"environment", cfg.App.Env,
		"partner", cfg.Monitor.PartnerCode,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	gormDB, err := db.InitPostgresORM(cfg.Database)
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (GORM)", "error", err.Error())
	}
	sqlDB, err := db.InitPostgres(cfg.Database)
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (sqlx)", "error", err.Error())
	}
	defer sqlDB.Close()

	cache, probes := initCache(cfg.Redis)
	defer cache.Close()

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)
	deps := api.InitDependencies(gormDB, sqlDB, cache, metricsReg)

	jobsContainer := jobs.InitializeJobs(
		cfg.Monitor,
		deps.Services.ForecastEDI,
		deps.Services.Tabular,
		deps.Repo.Transactions,
		metricsReg,
	)

	workersContainer := workers.InitWorkers(deps.Repo.Partners, deps.Services.Config, cfg.Monitor.ConfigWarmInterval)

	// SIGHUP stops the daemon as well; the supervisor restarts it with fresh config
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return jobsContainer.Run(gctx)
	})
	g.Go(func() error {
		return workersContainer.Run(gctx)
	})

	if cfg.API.Enabled {
		server := &http.Server{
			Addr: ":" + cfg.API.Port,
			Handler: routes.RegisterRoutes(routes.RouterOptions{
				UpSince:      time.Now(),
				API:          cfg.API,
				DB:           sqlDB,
				HealthProbes: probes,
				Deps:         deps,
				Monitor:      jobsContainer.FileMonitor,
				Gatherer:     prometheus.DefaultGatherer,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logging.Info("Ops API listening", "port", cfg.API.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logging.Error("ingestd stopped with error", "error", err.Error())
		lock.Release()
		logging.Close()
		os.Exit(1)
	}
	logging.Info("ingestd stopped")
}

// initCache prefers Redis when configured so several hosts share invalidations,
// falling back to the in-process cache when Redis is absent or unreachable
func initCache(cfg config.RedisConfig) (common.CacheInterface, map[string]api.HealthProbe) {
	if cfg.Host == "" {
		logging.Info("Using in-memory config cache")
		return common.NewCacheService(3600, 600), nil
	}

	redisCache, err := common.NewRedisCacheService(cfg)
	if err != nil {
		logging.Warn("Redis unavailable, using in-memory config cache", "host", cfg.Host, "error", err.Error())
		return common.NewCacheService(3600, 600), nil
	}

	logging.Info("Using Redis config cache", "host", cfg.Host)
	return redisCache, map[string]api.HealthProbe{"redis": redisCache.Ping}
}
