package middleware

import (
	"net/http"
	"time"

	reqctx "forecast-ingest/edi/internal/context"
	"forecast-ingest/edi/internal/logging"
)

// Logging writes one structured line per completed request. It must run
// inside RequestIDMiddleware to pick up the request id and token subject.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lw, r)

		requestID, subject := "", ""
		if info := reqctx.GetRequestInfo(r.Context()); info != nil {
			requestID, subject = info.ID, info.Subject
		}

		log := logging.WithRequest(requestID, subject, routePatternOf(r))
		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", lw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if lw.statusCode >= http.StatusInternalServerError {
			log.Warnw("HTTP request failed", fields...)
			return
		}
		log.Infow("HTTP request completed", fields...)
	})
}
