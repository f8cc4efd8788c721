package workers

import (
	"context"
	"time"

	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/db/repositories"
)

type WorkersContainer struct {
	ConfigWarmer *ConfigCacheWarmer
	warmInterval time.Duration
}

// InitWorkers builds the background workers. A non-positive warmInterval
// disables the config warmer.
func InitWorkers(
	partners *repositories.TradingPartnerRepo,
	configs *common.CustomerConfigService,
	warmInterval time.Duration,
) *WorkersContainer {
	return &WorkersContainer{
		ConfigWarmer: NewConfigCacheWarmer(partners, configs),
		warmInterval: warmInterval,
	}
}

// Run blocks until ctx is cancelled
func (c *WorkersContainer) Run(ctx context.Context) error {
	if c.warmInterval <= 0 {
		return nil
	}
	c.ConfigWarmer.Start(ctx, c.warmInterval)
	return nil
}
