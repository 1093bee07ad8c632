package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RateLimitMiddleware(1, 2, next)

	codes := []int{}
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:4242"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst: %v", codes)
	}

	// a different client gets its own bucket
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.2:4242"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("fresh client status = %d", rec.Code)
	}
}

func TestRoutePatternCollapsesGroupIDs(t *testing.T) {
	cases := map[string]string{
		"/v1/trips":                       "/v1/trips",
		"/v1/trips/grp_1a2b3c4d":          "/v1/trips/{id}",
		"/v1/trips/grp_1a2b3c4d/optimize": "/v1/trips/{id}/optimize",
		"/v1/trips/grp_ffffffff/result":   "/v1/trips/{id}/result",
		"/v1/trips/grp_00000000/progress": "/v1/trips/{id}/progress",
		"/healthz":                        "/healthz",
		"/metrics":                        "/metrics",
	}
	for path, want := range cases {
		if got := routePattern(path); got != want {
			t.Errorf("routePattern(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLogMiddlewarePreservesStatus(t *testing.T) {
	h := LogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/trips", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}
