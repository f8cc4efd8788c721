package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"forecast-ingest/edi/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe checks one optional dependency such as the Redis cache
type HealthProbe func(ctx context.Context) error

// HealthCheckHandler handles GET /healthCheck. Postgres is always probed;
// extra probes are reported under their map key.
func HealthCheckHandler(db *sqlx.DB, probes map[string]HealthProbe, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		services := make(map[string]entities.ServiceStatus)

		pgStatus := entities.ServiceStatus{Status: "ok", Details: "Postgres Connected"}
		if db == nil {
			pgStatus = entities.ServiceStatus{Status: "down", Details: "no connection configured"}
		} else if err := db.PingContext(ctx); err != nil {
			pgStatus = entities.ServiceStatus{Status: "down", Details: err.Error()}
		}
		services["postgres"] = pgStatus

		for name, probe := range probes {
			status := entities.ServiceStatus{Status: "ok", Details: name + " reachable"}
			if err := probe(ctx); err != nil {
				status = entities.ServiceStatus{Status: "down", Details: err.Error()}
			}
			services[name] = status
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		resp := entities.HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			UpSince:  upSince.UTC(),
			Uptime:   time.Since(upSince).Round(time.Second).String(),
		}

		code := http.StatusOK
		if overallStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
