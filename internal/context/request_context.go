package context

import (
	"context"
)

type contextKey string

var requestInfoKey contextKey = "request_info"

// RequestInfo is shared by the middleware chain of one HTTP request. Inner
// middleware fill in fields that outer middleware read after the handler returns.
type RequestInfo struct {
	ID      string
	Subject string
}

func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// GetRequestInfo returns nil outside a request
func GetRequestInfo(ctx context.Context) *RequestInfo {
	if info, ok := ctx.Value(requestInfoKey).(*RequestInfo); ok {
		return info
	}
	return nil
}

// GetRequestID returns the correlation id, "" outside a request
func GetRequestID(ctx context.Context) string {
	if info := GetRequestInfo(ctx); info != nil {
		return info.ID
	}
	return ""
}
