package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"forecast-ingest/edi/internal/auth"
	"forecast-ingest/edi/internal/constants"
	reqctx "forecast-ingest/edi/internal/context"
)

var testKey = []byte("middleware-test-key")

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func bearer(t *testing.T, role constants.OpsRole) string {
	t.Helper()
	tok, err := auth.IssueToken(testKey, "tester", role, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return "Bearer " + tok
}

func TestAuthMiddleware(t *testing.T) {
	var seen *reqctx.RequestInfo
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = reqctx.GetRequestInfo(r.Context())
		if auth.GetUserClaims(r.Context()) == nil {
			t.Error("Expected claims in context")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequestIDMiddleware(AuthMiddleware(testKey)(inner))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"api key style", "ApiKey abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", bearer(t, constants.RoleOperator), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("Expected X-Request-ID header")
			}
		})
	}

	if seen == nil || seen.Subject != "tester" {
		t.Errorf("Expected subject recorded on request info, got %+v", seen)
	}
}

func TestRequirePermission(t *testing.T) {
	h := AuthMiddleware(testKey)(RequirePermission(constants.ActionWrite)(http.HandlerFunc(okHandler)))

	for role, want := range map[constants.OpsRole]int{
		constants.RoleOperator: http.StatusNoContent,
		constants.RoleViewer:   http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/run", nil)
		req.Header.Set("Authorization", bearer(t, role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("Role %s: expected %d, got %d", role, want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	RequirePermission(constants.ActionRead)(http.HandlerFunc(okHandler)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without claims, got %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, "127.0.0.1")
	h := rl.Middleware(http.HandlerFunc(okHandler))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/status", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if call("10.0.0.1:1000") != http.StatusNoContent || call("10.0.0.1:1001") != http.StatusNoContent {
		t.Fatal("Expected the burst to pass")
	}
	if got := call("10.0.0.1:1002"); got != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the burst, got %d", got)
	}
	if got := call("10.0.0.2:1000"); got != http.StatusNoContent {
		t.Errorf("Expected a separate bucket per IP, got %d", got)
	}
	for i := 0; i < 5; i++ {
		if got := call("127.0.0.1:5000"); got != http.StatusNoContent {
			t.Fatalf("Expected whitelisted IP never limited, got %d", got)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"/api/v1/imports/ACME":                                 "/api/v1/imports/ACME",
		"/api/v1/imports/42":                                   "/api/v1/imports/{id}",
		"/api/v1/runs/1b4e28ba-2fa1-11d2-883f-0016d3cca427/x": "/api/v1/runs/{id}/x",
	}
	for in, want := range tests {
		if got := NormalizeEndpoint(in); got != want {
			t.Errorf("NormalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
