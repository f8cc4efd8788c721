package responses

import "time"

// APIResponse is the envelope of every ops API reply
type APIResponse[T any] struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime string    `json:"response_time,omitempty"`
	Error        string    `json:"error,omitempty"`
	Data         *T        `json:"data,omitempty"`
}
