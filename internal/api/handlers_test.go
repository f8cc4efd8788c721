package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/db/repositories"
	"forecast-ingest/edi/internal/jobs"
	"forecast-ingest/edi/internal/models/dtos"
	"forecast-ingest/edi/internal/models/dtos/responses"
	gormModels "forecast-ingest/edi/internal/models/gorm"
	"forecast-ingest/edi/internal/services"

	"github.com/go-chi/chi/v5"
)

type mockConfigCache struct {
	invalidated []string
	cleared     int
}

func (m *mockConfigCache) Invalidate(partner string) { m.invalidated = append(m.invalidated, partner) }
func (m *mockConfigCache) ClearAll()                 { m.cleared++ }

type mockUploader struct {
	importReaderFunc func(ctx context.Context, partner, name string, r io.Reader) (*dtos.ImportResult, error)
}

func (m *mockUploader) ImportReader(ctx context.Context, partner, name string, r io.Reader) (*dtos.ImportResult, error) {
	return m.importReaderFunc(ctx, partner, name, r)
}

type mockRunner struct {
	runOnceFunc func(ctx context.Context) (*jobs.CycleReport, error)
	last        *jobs.CycleReport
}

func (m *mockRunner) RunOnce(ctx context.Context) (*jobs.CycleReport, error) { return m.runOnceFunc(ctx) }
func (m *mockRunner) LastReport() *jobs.CycleReport                          { return m.last }

type mockSummarizer struct {
	since time.Time
	rows  []repositories.TransactionStatusCount
	err   error
}

func (m *mockSummarizer) SummarySince(ctx context.Context, since time.Time) ([]repositories.TransactionStatusCount, error) {
	m.since = since
	return m.rows, m.err
}

// serve routes the request through chi so URL params resolve
func serve(method, pattern, target string, body io.Reader, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) responses.APIResponse[T] {
	t.Helper()
	var resp responses.APIResponse[T]
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestHandlers_ConfigCache(t *testing.T) {
	cache := &mockConfigCache{}
	h := &Handlers{configs: cache}

	rec := serve(http.MethodDelete, "/config/cache/{partner}", "/config/cache/ACME", nil, h.InvalidatePartnerConfig())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "ACME" {
		t.Errorf("Expected ACME invalidated, got %v", cache.invalidated)
	}
	if resp := decode[ConfigCacheResult](t, rec); resp.Status != "ok" || resp.Data.Partner != "ACME" {
		t.Errorf("Unexpected response %+v", resp)
	}

	rec = serve(http.MethodDelete, "/config/cache", "/config/cache", nil, h.ClearConfigCache())
	if rec.Code != http.StatusOK || cache.cleared != 1 {
		t.Errorf("Expected cache cleared once, got code %d cleared %d", rec.Code, cache.cleared)
	}
}

func TestHandlers_ImportTabular(t *testing.T) {
	var gotName, gotBody string
	uploader := &mockUploader{
		importReaderFunc: func(ctx context.Context, partner, name string, r io.Reader) (*dtos.ImportResult, error) {
			gotName = name
			b, _ := io.ReadAll(r)
			gotBody = string(b)
			switch partner {
			case "NOPE":
				return &dtos.ImportResult{}, fmt.Errorf("%w: NOPE", services.ErrUnknownPartner)
			case "BADHDR":
				return &dtos.ImportResult{}, &common.MappingError{Missing: []string{"PO Number"}}
			case "DB":
				return &dtos.ImportResult{}, &common.PersistenceError{Op: "insert", Err: errors.New("locked")}
			}
			return &dtos.ImportResult{Source: name, Processed: 1, Inserted: 1, Errors: []dtos.LineError{}}, nil
		},
	}
	h := &Handlers{importer: uploader}

	rec := serve(http.MethodPost, "/imports/{partner}", "/imports/ACME?filename=week.tsv", strings.NewReader("a\tb"), h.ImportTabular())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotName != "week.tsv" || gotBody != "a\tb" {
		t.Errorf("Expected filename and body passed through, got %q %q", gotName, gotBody)
	}
	if resp := decode[dtos.ImportResult](t, rec); resp.Data == nil || resp.Data.Inserted != 1 {
		t.Errorf("Expected the import result in the envelope, got %+v", resp)
	}

	serve(http.MethodPost, "/imports/{partner}", "/imports/ACME?filename=../../etc/passwd", strings.NewReader(""), h.ImportTabular())
	if gotName != "passwd" {
		t.Errorf("Expected the filename reduced to its base, got %q", gotName)
	}

	serve(http.MethodPost, "/imports/{partner}", "/imports/ACME", strings.NewReader(""), h.ImportTabular())
	if gotName != defaultUploadName {
		t.Errorf("Expected default filename, got %q", gotName)
	}

	for partner, want := range map[string]int{
		"NOPE":   http.StatusNotFound,
		"BADHDR": http.StatusUnprocessableEntity,
		"DB":     http.StatusInternalServerError,
	} {
		rec := serve(http.MethodPost, "/imports/{partner}", "/imports/"+partner, strings.NewReader("x"), h.ImportTabular())
		if rec.Code != want {
			t.Errorf("Partner %s: expected %d, got %d", partner, want, rec.Code)
		}
		if resp := decode[any](t, rec); resp.Status != "error" || resp.Error == "" {
			t.Errorf("Partner %s: expected error envelope, got %+v", partner, resp)
		}
	}
}

func TestJobsHandler_TriggerRun(t *testing.T) {
	runner := &mockRunner{
		runOnceFunc: func(ctx context.Context) (*jobs.CycleReport, error) {
			return &jobs.CycleReport{RunID: "run-1", Processed: 2}, nil
		},
	}
	h := NewJobsHandler(runner, nil, nil)

	rec := serve(http.MethodPost, "/jobs/run", "/jobs/run", nil, h.TriggerRun())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp := decode[TriggerRunResult](t, rec)
	if resp.Data == nil || resp.Data.Report == nil || resp.Data.Report.RunID != "run-1" {
		t.Errorf("Expected the cycle report, got %+v", resp.Data)
	}

	runner.runOnceFunc = func(ctx context.Context) (*jobs.CycleReport, error) {
		return nil, errors.New("inbox unreadable")
	}
	rec = serve(http.MethodPost, "/jobs/run", "/jobs/run", nil, h.TriggerRun())
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on a failed cycle, got %d", rec.Code)
	}
}

func TestJobsHandler_GetJobStatus(t *testing.T) {
	runner := &mockRunner{last: &jobs.CycleReport{RunID: "run-9"}}
	stats := &mockSummarizer{rows: []repositories.TransactionStatusCount{{Status: "processed", Files: 3, Lines: 40}}}
	h := NewJobsHandler(runner, stats, nil)

	rec := serve(http.MethodGet, "/jobs/status", "/jobs/status?hours=2", nil, h.GetJobStatus())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp := decode[JobStatusData](t, rec)
	if resp.Data.LastRun == nil || resp.Data.LastRun.RunID != "run-9" {
		t.Errorf("Expected last run, got %+v", resp.Data.LastRun)
	}
	if len(resp.Data.Summary) != 1 || resp.Data.Summary[0].Files != 3 {
		t.Errorf("Expected summary rows, got %+v", resp.Data.Summary)
	}
	if window := time.Since(stats.since); window < 2*time.Hour || window > 2*time.Hour+time.Minute {
		t.Errorf("Expected a two hour window, got %s", window)
	}

	if rec := serve(http.MethodGet, "/jobs/status", "/jobs/status?hours=-1", nil, h.GetJobStatus()); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad window, got %d", rec.Code)
	}

	stats.err = errors.New("db down")
	if rec := serve(http.MethodGet, "/jobs/status", "/jobs/status", nil, h.GetJobStatus()); rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when the summary fails, got %d", rec.Code)
	}
}

type mockRunLog struct {
	entries map[string][]gormModels.EDITransaction
}

func (m *mockRunLog) ListByRun(ctx context.Context, runID string) ([]gormModels.EDITransaction, error) {
	return m.entries[runID], nil
}

func TestJobsHandler_GetRunLog(t *testing.T) {
	runLog := &mockRunLog{entries: map[string][]gormModels.EDITransaction{
		"run-1": {{RunID: "run-1", Filename: "a.830"}},
	}}
	h := NewJobsHandler(&mockRunner{}, nil, runLog)

	rec := serve(http.MethodGet, "/jobs/runs/{run_id}", "/jobs/runs/run-1", nil, h.GetRunLog())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if resp := decode[[]gormModels.EDITransaction](t, rec); resp.Data == nil || len(*resp.Data) != 1 {
		t.Errorf("Expected one entry, got %+v", resp.Data)
	}

	if rec := serve(http.MethodGet, "/jobs/runs/{run_id}", "/jobs/runs/none", nil, h.GetRunLog()); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown run, got %d", rec.Code)
	}
}

func TestHealthCheckHandler_Probes(t *testing.T) {
	probes := map[string]HealthProbe{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	}
	rec := serve(http.MethodGet, "/healthCheck", "/healthCheck", nil, HealthCheckHandler(nil, probes, time.Now().Add(-time.Minute)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
	var body struct {
		Status   string `json:"status"`
		Services map[string]struct {
			Status string `json:"status"`
		} `json:"services"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if body.Status != "down" || body.Services["redis"].Status != "down" || body.Services["postgres"].Status != "down" {
		t.Errorf("Unexpected health body %+v", body)
	}
}
