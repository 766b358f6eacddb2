package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"epas/internal/requestctx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitKeysByUser(t *testing.T) {
	limited := RateLimit(1, time.Minute)(okHandler())

	request := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/appraisals", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if userID != "" {
			req = req.WithContext(requestctx.WithUser(req.Context(), requestctx.User{ID: userID, Role: "employee"}))
		}
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request("u1"); code != http.StatusNoContent {
		t.Fatalf("first request for u1: %d", code)
	}
	if code := request("u1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request for u1 should be limited, got %d", code)
	}
	// a different user from the same address has its own bucket
	if code := request("u2"); code != http.StatusNoContent {
		t.Fatalf("first request for u2: %d", code)
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(okHandler())

	request := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request("10.0.0.1:1234"); code != http.StatusNoContent {
		t.Fatalf("first request: %d", code)
	}
	if code := request("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Fatalf("same IP should be limited, got %d", code)
	}
	if code := request("10.0.0.2:1234"); code != http.StatusNoContent {
		t.Fatalf("other IP should pass, got %d", code)
	}
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	req.RemoteAddr = "10.0.0.9:1"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("unexpected limit header %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected remaining header %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestWorkflowRateLimitScopesToWorkflowMutations(t *testing.T) {
	// base limit 2 halves to 1 for workflow mutations
	limited := WorkflowRateLimit(2, time.Minute)(okHandler())

	request := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request(http.MethodPost, "/api/v1/appraisals/a1/submit"); code != http.StatusNoContent {
		t.Fatalf("first submit: %d", code)
	}
	if code := request(http.MethodPost, "/api/v1/appraisals/a1/decision"); code != http.StatusTooManyRequests {
		t.Fatalf("second workflow mutation should be limited, got %d", code)
	}

	// reads and non-workflow writes bypass the tighter limit
	if code := request(http.MethodGet, "/api/v1/appraisals/a1"); code != http.StatusNoContent {
		t.Fatalf("read should bypass, got %d", code)
	}
	if code := request(http.MethodPost, "/api/v1/forms"); code != http.StatusNoContent {
		t.Fatalf("non-workflow POST should bypass, got %d", code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := ClientIP(req); ip != "203.0.113.7" {
		t.Fatalf("unexpected client ip %q", ip)
	}

	req.Header.Del("X-Forwarded-For")
	if ip := ClientIP(req); ip != "10.0.0.1" {
		t.Fatalf("unexpected client ip %q", ip)
	}
}
