package api

import (
	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/db/repositories"
	"forecast-ingest/edi/internal/metrics"
	"forecast-ingest/edi/internal/services"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

type Repositories struct {
	Partners         *repositories.TradingPartnerRepo
	Schedules        *repositories.GormScheduleStore
	Transactions     *repositories.EDITransactionRepo
	TransactionStats *repositories.EDITransactionStatsRepo
}

type Services struct {
	Cache       common.CacheInterface
	Config      *common.CustomerConfigService
	Schedules   *services.DeliveryScheduleService
	ForecastEDI *services.ForecastEDIService
	Tabular     *services.TabularImportService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry
}

// InitDependencies wires repositories and services. sqlDB may be nil when
// only imports are needed (the status summary is then unavailable).
func InitDependencies(gormDB *gorm.DB, sqlDB *sqlx.DB, cache common.CacheInterface, metricsReg *metrics.MetricsRegistry) *Dependencies {
	repos := &Repositories{
		Partners:     repositories.NewTradingPartnerRepo(gormDB),
		Schedules:    repositories.NewGormScheduleStore(gormDB),
		Transactions: repositories.NewEDITransactionRepo(gormDB),
	}
	if sqlDB != nil {
		repos.TransactionStats = repositories.NewEDITransactionStatsRepo(sqlDB)
	}

	configSvc := common.NewCustomerConfigService(repos.Partners, cache)
	configSvc.SetMetrics(metricsReg)
	reconciler := services.NewDeliveryScheduleService()

	svcs := &Services{
		Cache:       cache,
		Config:      configSvc,
		Schedules:   reconciler,
		ForecastEDI: services.NewForecastEDIService(configSvc, repos.Partners, repos.Schedules, reconciler, metricsReg),
		Tabular:     services.NewTabularImportService(configSvc, repos.Partners, repos.Schedules, reconciler, metricsReg),
	}

	return &Dependencies{
		Repo:     repos,
		Services: svcs,
		Metrics:  metricsReg,
	}
}
