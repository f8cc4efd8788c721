package workers

import (
	"context"
	"time"

	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/models/dtos"
	gormModels "forecast-ingest/edi/internal/models/gorm"

	"go.uber.org/zap"
)

// PartnerLister returns the partners whose configuration should stay warm
type PartnerLister interface {
	ListActive(ctx context.Context) ([]gormModels.TradingPartner, error)
}

// ConfigResolver is the customer configuration cache being refreshed
type ConfigResolver interface {
	Invalidate(partner string)
	Resolve(ctx context.Context, partner string) *dtos.CustomerConfig
	ResolveByID(ctx context.Context, partnerID uint) *dtos.CustomerConfig
}

// ConfigCacheWarmer periodically reloads the configuration of every active
// partner so edits made in the database reach the parsers without an
// explicit invalidation, and the first file of a cycle never waits on a load.
type ConfigCacheWarmer struct {
	partners PartnerLister
	configs  ConfigResolver
	log      *zap.SugaredLogger
}

func NewConfigCacheWarmer(partners PartnerLister, configs ConfigResolver) *ConfigCacheWarmer {
	return &ConfigCacheWarmer{
		partners: partners,
		configs:  configs,
		log:      logging.Named("ConfigCacheWarmer"),
	}
}

// Start warms immediately and then every interval until ctx is done
func (w *ConfigCacheWarmer) Start(ctx context.Context, interval time.Duration) {
	w.log.Infow("Starting config cache warmer", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Warm(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Shutting down config cache warmer")
			return
		case <-ticker.C:
			w.Warm(ctx)
		}
	}
}

// Warm refreshes every active partner under both its code and its id and
// returns how many partners were reloaded
func (w *ConfigCacheWarmer) Warm(ctx context.Context) int {
	partners, err := w.partners.ListActive(ctx)
	if err != nil {
		w.log.Warnw("Failed to list partners", "error", err.Error())
		return 0
	}

	warmed := 0
	for _, p := range partners {
		if ctx.Err() != nil {
			break
		}
		w.configs.Invalidate(p.Code)
		cfg := w.configs.Resolve(ctx, p.Code)
		w.configs.ResolveByID(ctx, p.ID)
		if cfg.IsDefault {
			w.log.Debugw("Partner has no stored configuration", "partner", p.Code)
		}
		warmed++
	}

	w.log.Debugw("Config cache warmed", "partners", warmed)
	return warmed
}
