package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"forecast-ingest/edi/internal/auth"
	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/models/dtos"
	"forecast-ingest/edi/internal/services"

	"github.com/go-chi/chi/v5"
)

const (
	maxUploadBytes      = 10 << 20
	defaultUploadName   = "upload.csv"
	uploadFilenameParam = "filename"
)

// ConfigCache is the invalidation surface of the customer configuration resolver
type ConfigCache interface {
	Invalidate(partner string)
	ClearAll()
}

// TabularUploader imports a delimited body for a partner
type TabularUploader interface {
	ImportReader(ctx context.Context, partner, name string, r io.Reader) (*dtos.ImportResult, error)
}

type Handlers struct {
	configs  ConfigCache
	importer TabularUploader
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		configs:  deps.Services.Config,
		importer: deps.Services.Tabular,
	}
}

type ConfigCacheResult struct {
	Partner string `json:"partner,omitempty"`
	Cleared string `json:"cleared"`
}

// ClearConfigCache handles DELETE /api/v1/config/cache
func (h *Handlers) ClearConfigCache() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.configs.ClearAll()

		logging.Info("Customer config cache cleared", "by", subjectOf(r))
		respondWithSuccess(w, http.StatusOK, start, &ConfigCacheResult{Cleared: "all"})
	}
}

// InvalidatePartnerConfig handles DELETE /api/v1/config/cache/{partner}
func (h *Handlers) InvalidatePartnerConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		partner := strings.TrimSpace(chi.URLParam(r, "partner"))
		if partner == "" {
			respondWithError(w, http.StatusBadRequest, "partner is required")
			return
		}

		h.configs.Invalidate(partner)

		logging.Info("Customer config invalidated", "partner", partner, "by", subjectOf(r))
		respondWithSuccess(w, http.StatusOK, start, &ConfigCacheResult{Partner: partner, Cleared: "partner"})
	}
}

// ImportTabular handles POST /api/v1/imports/{partner}. The request body is the
// file itself; ?filename= selects the delimiter by extension.
func (h *Handlers) ImportTabular() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		partner := strings.TrimSpace(chi.URLParam(r, "partner"))
		if partner == "" {
			respondWithError(w, http.StatusBadRequest, "partner is required")
			return
		}

		name := filepath.Base(r.URL.Query().Get(uploadFilenameParam))
		if name == "." || name == "/" {
			name = defaultUploadName
		}

		body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
		defer body.Close()

		result, err := h.importer.ImportReader(r.Context(), partner, name, body)
		if err != nil {
			status := importErrorStatus(err)
			logging.Warn("Tabular upload failed",
				"partner", partner,
				"file", name,
				"by", subjectOf(r),
				"error", err.Error(),
			)
			respondWithError(w, status, err.Error())
			return
		}

		logging.Info("Tabular upload imported",
			"partner", partner,
			"file", name,
			"by", subjectOf(r),
			"inserted", result.Inserted,
			"updated", result.Updated,
			"skipped", result.Skipped,
		)
		respondWithSuccess(w, http.StatusOK, start, result)
	}
}

func importErrorStatus(err error) int {
	var (
		mappingErr *common.MappingError
		maxBytes   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, services.ErrUnknownPartner):
		return http.StatusNotFound
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &mappingErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func subjectOf(r *http.Request) string {
	if claims := auth.GetUserClaims(r.Context()); claims != nil {
		return claims.UserID()
	}
	return ""
}
