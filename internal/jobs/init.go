package jobs

import (
	"context"

	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/metrics"
	"forecast-ingest/edi/internal/providers"
)

// JobsContainer holds the background jobs of the daemon
type JobsContainer struct {
	FileMonitor *FileMonitorJob
	cfg         config.MonitorConfig
}

// InitializeJobs builds the background jobs. Downloading is enabled only
// when cfg.RemoteDir names the partner drop; the transport is rooted there and
// the job lists cfg.RemotePath relative to it.
func InitializeJobs(
	cfg config.MonitorConfig,
	ediProcessor InterchangeProcessor,
	tabular TabularImporter,
	txLog TransactionRecorder,
	m *metrics.MetricsRegistry,
) *JobsContainer {
	var transport providers.Transport
	if cfg.RemoteDir != "" {
		transport = providers.NewLocalDirTransport(cfg.RemoteDir)
	}

	logging.Info("Jobs initialized",
		"partner", cfg.PartnerCode,
		"inbox", cfg.InboxDir,
		"remote_dir", cfg.RemoteDir,
		"remote_path", cfg.RemotePath,
		"poll_interval", cfg.PollInterval.String(),
	)

	return &JobsContainer{
		FileMonitor: NewFileMonitorJob(cfg, transport, ediProcessor, tabular, txLog, m),
		cfg:         cfg,
	}
}

// Run blocks in the scheduled loop until ctx is cancelled
func (c *JobsContainer) Run(ctx context.Context) error {
	c.FileMonitor.RunScheduled(ctx, c.cfg.PollInterval, c.cfg.ErrorBackoff)
	return nil
}
