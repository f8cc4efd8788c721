package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"forecast-ingest/edi/internal/db/repositories"
	"forecast-ingest/edi/internal/jobs"
	"forecast-ingest/edi/internal/logging"
	gormModels "forecast-ingest/edi/internal/models/gorm"

	"github.com/go-chi/chi/v5"
)

const defaultStatusWindow = 24 * time.Hour

// CycleRunner is the orchestrator surface the ops API drives
type CycleRunner interface {
	RunOnce(ctx context.Context) (*jobs.CycleReport, error)
	LastReport() *jobs.CycleReport
}

// TransactionSummarizer aggregates the file audit log
type TransactionSummarizer interface {
	SummarySince(ctx context.Context, since time.Time) ([]repositories.TransactionStatusCount, error)
}

// RunLog lists the audit entries of one cycle
type RunLog interface {
	ListByRun(ctx context.Context, runID string) ([]gormModels.EDITransaction, error)
}

// JobsHandler handles manual job triggering endpoints
type JobsHandler struct {
	monitor CycleRunner
	stats   TransactionSummarizer
	runLog  RunLog
}

// NewJobsHandler creates a new jobs handler. stats may be nil.
func NewJobsHandler(monitor CycleRunner, stats TransactionSummarizer, runLog RunLog) *JobsHandler {
	return &JobsHandler{
		monitor: monitor,
		stats:   stats,
		runLog:  runLog,
	}
}

type TriggerRunResult struct {
	TriggeredBy string            `json:"triggered_by"`
	TriggeredAt time.Time         `json:"triggered_at"`
	CompletedAt time.Time         `json:"completed_at"`
	DurationMs  int64             `json:"duration_ms"`
	Report      *jobs.CycleReport `json:"report"`
}

type JobStatusData struct {
	LastRun *jobs.CycleReport                     `json:"last_run,omitempty"`
	Since   time.Time                             `json:"since"`
	Summary []repositories.TransactionStatusCount `json:"summary"`
}

// TriggerRun runs one orchestrator cycle and waits for it
func (h *JobsHandler) TriggerRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		triggeredBy := subjectOf(r)

		logging.Info("Orchestrator cycle manually triggered", "by", triggeredBy)

		report, err := h.monitor.RunOnce(r.Context())
		if err != nil {
			logging.Error("Manual orchestrator cycle failed", "by", triggeredBy, "error", err.Error())
			respondWithError(w, http.StatusInternalServerError, "cycle failed: "+err.Error())
			return
		}

		respondWithSuccess(w, http.StatusOK, start, &TriggerRunResult{
			TriggeredBy: triggeredBy,
			TriggeredAt: start.UTC(),
			CompletedAt: time.Now().UTC(),
			DurationMs:  time.Since(start).Milliseconds(),
			Report:      report,
		})
	}
}

// GetJobStatus returns the last cycle and a per-status count of files
// logged in the last ?hours= hours (24 by default)
func (h *JobsHandler) GetJobStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		window := defaultStatusWindow
		if raw := r.URL.Query().Get("hours"); raw != "" {
			hours, err := strconv.Atoi(raw)
			if err != nil || hours <= 0 {
				respondWithError(w, http.StatusBadRequest, "hours must be a positive integer")
				return
			}
			window = time.Duration(hours) * time.Hour
		}

		data := &JobStatusData{
			LastRun: h.monitor.LastReport(),
			Since:   start.Add(-window).UTC(),
			Summary: []repositories.TransactionStatusCount{},
		}

		if h.stats != nil {
			summary, err := h.stats.SummarySince(r.Context(), data.Since)
			if err != nil {
				logging.Error("Failed to summarize transaction log", "error", err.Error())
				respondWithError(w, http.StatusInternalServerError, "failed to read transaction log")
				return
			}
			if summary != nil {
				data.Summary = summary
			}
		}

		respondWithSuccess(w, http.StatusOK, start, data)
	}
}

// GetRunLog returns the files recorded for one cycle, GET /api/v1/jobs/runs/{run_id}
func (h *JobsHandler) GetRunLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		runID := chi.URLParam(r, "run_id")

		entries, err := h.runLog.ListByRun(r.Context(), runID)
		if err != nil {
			logging.Error("Failed to list run log", "run_id", runID, "error", err.Error())
			respondWithError(w, http.StatusInternalServerError, "failed to read transaction log")
			return
		}
		if len(entries) == 0 {
			respondWithError(w, http.StatusNotFound, "no files recorded for run "+runID)
			return
		}

		respondWithSuccess(w, http.StatusOK, start, &entries)
	}
}
