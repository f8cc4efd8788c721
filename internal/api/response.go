package api

import (
	"encoding/json"
	"net/http"
	"time"

	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/models/dtos/responses"
	"forecast-ingest/edi/internal/services"
)

func respondWithSuccess[T any](w http.ResponseWriter, statusCode int, start time.Time, data *T) {
	resp := responses.APIResponse[T]{
		Status:       string(constants.APIStatusOk),
		Timestamp:    time.Now().UTC(),
		ResponseTime: services.GetResponseTime(start),
		Data:         data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	resp := responses.APIResponse[any]{
		Status:    string(constants.APIStatusError),
		Timestamp: time.Now().UTC(),
		Error:     message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
