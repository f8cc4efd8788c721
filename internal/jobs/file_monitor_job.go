package jobs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/metrics"
	"forecast-ingest/edi/internal/models/dtos"
	gormModels "forecast-ingest/edi/internal/models/gorm"
	"forecast-ingest/edi/internal/providers"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InterchangeProcessor handles X12 files
type InterchangeProcessor interface {
	ProcessFile(ctx context.Context, path, partner string) (*dtos.ImportResult, error)
}

// TabularImporter handles delimited files
type TabularImporter interface {
	ImportFile(ctx context.Context, path, partner string) (*dtos.ImportResult, error)
}

// TransactionRecorder persists the per-file audit log
type TransactionRecorder interface {
	Record(ctx context.Context, entry *gormModels.EDITransaction) error
}

var (
	interchangeExtensions = map[string]bool{".edi": true, ".x12": true, ".830": true, ".862": true}
	tabularExtensions     = map[string]bool{".csv": true, ".tsv": true, ".tab": true}
	// decided by content
	ambiguousExtensions = map[string]bool{".txt": true, ".dat": true, "": true}
)

// File outcomes reported per file
const (
	FileOutcomeProcessed = "processed"
	FileOutcomeError     = "error"
)

// FileOutcome describes what happened to one inbox file
type FileOutcome struct {
	Name     string `json:"name"`
	FileType string `json:"file_type"`
	Outcome  string `json:"outcome"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Errors   int    `json:"errors"`
	Error    string `json:"error,omitempty"`
	MovedTo  string `json:"moved_to,omitempty"`
}

// CycleReport summarizes one RunOnce
type CycleReport struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Downloaded     int           `json:"downloaded"`
	Processed      int           `json:"processed"`
	Failed         int           `json:"failed"`
	TransportError string        `json:"transport_error,omitempty"`
	Files          []FileOutcome `json:"files"`
}

// FileMonitorJob fetches partner files, routes each to its parser and files
// it under processed or error according to the outcome
type FileMonitorJob struct {
	cfg       config.MonitorConfig
	transport providers.Transport
	edi       InterchangeProcessor
	tabular   TabularImporter
	txLog     TransactionRecorder
	metrics   *metrics.MetricsRegistry
	log       *zap.SugaredLogger

	// mu serializes cycles between the poll loop and manual triggers
	mu sync.Mutex
	// processed holds every name handled in this process lifetime; it is never pruned
	processed map[string]struct{}

	reportMu sync.RWMutex
	last     *CycleReport
}

// NewFileMonitorJob creates a new orchestrator. transport may be nil to skip downloading.
func NewFileMonitorJob(
	cfg config.MonitorConfig,
	transport providers.Transport,
	ediProcessor InterchangeProcessor,
	tabular TabularImporter,
	txLog TransactionRecorder,
	m *metrics.MetricsRegistry,
) *FileMonitorJob {
	return &FileMonitorJob{
		cfg:       cfg,
		transport: transport,
		edi:       ediProcessor,
		tabular:   tabular,
		txLog:     txLog,
		metrics:   m,
		log:       logging.Named("FileMonitorJob"),
		processed: make(map[string]struct{}),
	}
}

// LastReport returns the most recent cycle summary, nil before the first cycle
func (j *FileMonitorJob) LastReport() *CycleReport {
	j.reportMu.RLock()
	defer j.reportMu.RUnlock()
	if j.last == nil {
		return nil
	}
	r := *j.last
	r.Files = append([]FileOutcome(nil), j.last.Files...)
	return &r
}

// RunOnce performs one download and one local scan. Cancellation of ctx does
// not interrupt a cycle in progress.
func (j *FileMonitorJob) RunOnce(ctx context.Context) (*CycleReport, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	report := &CycleReport{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Files:     []FileOutcome{},
	}
	runLog := logging.WithRun(report.RunID, j.cfg.PartnerCode).Named("FileMonitorJob")

	err := j.runCycle(ctx, report, runLog)

	report.FinishedAt = time.Now().UTC()
	j.metrics.ObserveCycle(time.Since(start).Seconds(), err != nil)

	j.reportMu.Lock()
	j.last = report
	j.reportMu.Unlock()

	if err != nil {
		return report, err
	}

	runLog.Infow("Cycle complete",
		"downloaded", report.Downloaded,
		"processed", report.Processed,
		"failed", report.Failed,
		"duration", time.Since(start).String(),
	)
	return report, nil
}

func (j *FileMonitorJob) runCycle(ctx context.Context, report *CycleReport, log *zap.SugaredLogger) error {
	for _, dir := range []string{j.cfg.InboxDir, j.cfg.ProcessedDir, j.cfg.ErrorDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to prepare directory %s: %w", dir, err)
		}
	}

	if j.transport != nil {
		if err := j.download(ctx, report, log); err != nil {
			report.TransportError = err.Error()
			log.Warnw("Download failed, continuing with local files", "error", err.Error())
		}
	}

	entries, err := os.ReadDir(j.cfg.InboxDir)
	if err != nil {
		return fmt.Errorf("failed to scan inbox %s: %w", j.cfg.InboxDir, err)
	}

	// os.ReadDir sorts by name
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, seen := j.processed[name]; seen {
			continue
		}
		j.processed[name] = struct{}{}

		outcome := j.processFile(ctx, report.RunID, name, log)
		if outcome.Outcome == FileOutcomeProcessed {
			report.Processed++
		} else {
			report.Failed++
		}
		report.Files = append(report.Files, outcome)
	}

	return nil
}

// download copies every matching remote file into the inbox
func (j *FileMonitorJob) download(ctx context.Context, report *CycleReport, log *zap.SugaredLogger) error {
	timeout := j.cfg.TransportTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	call := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, timeout)
	}

	cctx, cancel := call()
	info, err := j.transport.Connect(cctx)
	cancel()
	if err != nil {
		j.observeTransportError(err, "connect")
		return err
	}
	defer j.transport.Close()
	log.Debugw("Transport connected", "server", info.Server, "user", info.User, "cwd", info.Cwd)

	cctx, cancel = call()
	names, err := j.transport.List(cctx, j.cfg.RemotePath, j.cfg.FilePattern)
	cancel()
	if err != nil {
		j.observeTransportError(err, "list")
		return err
	}

	var firstErr error
	for _, name := range names {
		remote := path.Join(j.cfg.RemotePath, name)
		if _, seen := j.processed[name]; seen {
			log.Debugw("Skipping remote file already handled", "remote", remote)
			continue
		}

		cctx, cancel = call()
		err := j.transport.Get(cctx, remote, filepath.Join(j.cfg.InboxDir, name))
		cancel()
		if err != nil {
			j.observeTransportError(err, "get")
			log.Warnw("Failed to download file", "remote", remote, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		report.Downloaded++

		if j.cfg.DeleteAfterDownload {
			cctx, cancel = call()
			err := j.transport.Delete(cctx, remote)
			cancel()
			if err != nil {
				j.observeTransportError(err, "delete")
				log.Warnw("Failed to delete remote file", "remote", remote, "error", err.Error())
			}
		}
	}

	return firstErr
}

func (j *FileMonitorJob) observeTransportError(err error, fallbackOp string) {
	op := fallbackOp
	var transportErr *common.TransportError
	if errors.As(err, &transportErr) && transportErr.Op != "" {
		op = transportErr.Op
	}
	j.metrics.ObserveTransportError(op)
}

func (j *FileMonitorJob) processFile(ctx context.Context, runID, name string, log *zap.SugaredLogger) FileOutcome {
	src := filepath.Join(j.cfg.InboxDir, name)
	outcome := FileOutcome{Name: name}

	fileType, err := ClassifyFile(src)
	var result *dtos.ImportResult
	if err == nil {
		outcome.FileType = fileType
		switch fileType {
		case constants.TransactionFileTypeX12:
			result, err = j.edi.ProcessFile(ctx, src, j.cfg.PartnerCode)
		case constants.TransactionFileTypeTabular:
			result, err = j.tabular.ImportFile(ctx, src, j.cfg.PartnerCode)
		}
	}

	destDir := j.cfg.ProcessedDir
	outcome.Outcome = FileOutcomeProcessed
	if err != nil {
		destDir = j.cfg.ErrorDir
		outcome.Outcome = FileOutcomeError
		outcome.Error = err.Error()
		log.Errorw("File failed",
			"file", name,
			"file_type", fileType,
			"code", common.ErrorCode(err),
			"error", err.Error(),
		)
	}
	if result != nil {
		outcome.Inserted = result.Inserted
		outcome.Updated = result.Updated
		outcome.Skipped = result.Skipped
		outcome.Errors = len(result.Errors)
	}

	j.record(ctx, runID, outcome, result, log)
	j.metrics.ObserveFile(metricFileType(fileType), outcome.Outcome)

	dest, moveErr := moveWithoutClobber(src, destDir)
	if moveErr != nil {
		log.Errorw("Failed to relocate file, it stays in the inbox",
			"file", name,
			"destination", destDir,
			"error", moveErr.Error(),
		)
		return outcome
	}
	outcome.MovedTo = dest

	log.Infow("File handled",
		"file", name,
		"outcome", outcome.Outcome,
		"moved_to", dest,
	)
	return outcome
}

func (j *FileMonitorJob) record(ctx context.Context, runID string, outcome FileOutcome, result *dtos.ImportResult, log *zap.SugaredLogger) {
	if j.txLog == nil {
		return
	}

	status := constants.TransactionStatusProcessed
	if outcome.Outcome == FileOutcomeError {
		status = constants.TransactionStatusError
	}

	entry := &gormModels.EDITransaction{
		RunID:      runID,
		Filename:   outcome.Name,
		Direction:  constants.TransactionDirectionInbound,
		FileType:   outcome.FileType,
		Status:     status,
		Inserted:   outcome.Inserted,
		Updated:    outcome.Updated,
		Skipped:    outcome.Skipped,
		ErrorCount: outcome.Errors,
	}
	if result != nil {
		entry.Processed = result.Processed
		if result.PartnerID != 0 {
			id := result.PartnerID
			entry.PartnerID = &id
		}
	}
	if outcome.Error != "" {
		msg := outcome.Error
		entry.ErrorMessage = &msg
	}

	if err := j.txLog.Record(ctx, entry); err != nil {
		log.Warnw("Failed to record transaction log entry", "file", outcome.Name, "error", err.Error())
	}
}

// RunScheduled runs a cycle, then sleeps interval (or backoff after a failed
// or panicking cycle) until ctx is done. ctx is checked before each cycle and
// during the sleep, never inside a cycle.
func (j *FileMonitorJob) RunScheduled(ctx context.Context, interval, backoff time.Duration) {
	j.log.Infow("Starting file monitor", "interval", interval.String(), "backoff", backoff.String())

	for {
		if ctx.Err() != nil {
			j.log.Info("Shutting down file monitor")
			return
		}

		wait := interval
		if err := j.safeRunOnce(ctx); err != nil {
			j.log.Errorw("Cycle failed, backing off", "error", err.Error(), "backoff", backoff.String())
			wait = backoff
		}

		select {
		case <-ctx.Done():
			j.log.Info("Shutting down file monitor")
			return
		case <-time.After(wait):
		}
	}
}

func (j *FileMonitorJob) safeRunOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
			j.metrics.ObserveCycle(0, true)
		}
	}()
	_, err = j.RunOnce(ctx)
	return err
}

// ClassifyFile routes by extension, falling back to content for ambiguous names
func ClassifyFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case interchangeExtensions[ext]:
		return constants.TransactionFileTypeX12, nil
	case tabularExtensions[ext]:
		return constants.TransactionFileTypeTabular, nil
	case ambiguousExtensions[ext]:
		return sniffFile(path)
	default:
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
}

func sniffFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := bufio.NewReader(f).Read(head)
	head = bytes.TrimLeft(head[:n], " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(head, []byte(ediISAPrefix)) {
		return constants.TransactionFileTypeX12, nil
	}
	return constants.TransactionFileTypeTabular, nil
}

const ediISAPrefix = "ISA"

func metricFileType(fileType string) string {
	if fileType == "" {
		return "unknown"
	}
	return fileType
}

// moveWithoutClobber renames src into dir, adding a timestamp suffix (and a
// counter if needed) when the name is already taken
func moveWithoutClobber(src, dir string) (string, error) {
	name := filepath.Base(src)
	dest := filepath.Join(dir, name)

	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		stamp := time.Now().UTC().Format("20060102T150405")
		dest = filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, stamp, ext))
		for i := 1; ; i++ {
			if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
				break
			}
			dest = filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", base, stamp, i, ext))
		}
	}

	if err := os.Rename(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}
