package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contribcalc/internal/platform/metrics"
)

func TestRecovererReturns500(t *testing.T) {
	handler := RequestID(Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal_error") {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestBodyLimitRejectsOversizedPost(t *testing.T) {
	var readErr error
	handler := BodyLimit(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	body := strings.NewReader(strings.Repeat("x", 16+multipartOverhead+1))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", body))
	if readErr == nil {
		t.Fatal("expected read error past the limit")
	}

	readErr = nil
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if readErr != nil {
		t.Fatalf("unexpected error for small body: %v", readErr)
	}
}

func TestSecureHeaders(t *testing.T) {
	tests := []struct {
		name     string
		isProd   bool
		wantHSTS bool
	}{
		{name: "development", isProd: false, wantHSTS: false},
		{name: "production", isProd: true, wantHSTS: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			handler := SecureHeaders(tc.isProd)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Fatal("expected nosniff header")
			}
			if got := rec.Header().Get("Strict-Transport-Security") != ""; got != tc.wantHSTS {
				t.Fatalf("hsts present=%v, want %v", got, tc.wantHSTS)
			}
		})
	}
}

func TestMetricsRecordsStatus(t *testing.T) {
	collector := metrics.New()
	handler := Metrics(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	snap := collector.Snapshot()
	if snap.RequestsTotal != 2 || snap.ErrorsTotal != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRateLimitByClientIP(t *testing.T) {
	handler := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/calculate", nil)
		req.RemoteAddr = addr
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("203.0.113.10:4444", ""); code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("203.0.113.10:5555", ""); code != http.StatusTooManyRequests {
		t.Fatalf("expected same ip to be throttled, got %d", code)
	}
	if code := send("203.0.113.11:4444", ""); code != http.StatusNoContent {
		t.Fatalf("expected other ip to pass, got %d", code)
	}
	if code := send("10.0.0.1:1", "203.0.113.11, 10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected forwarded client to share the bucket, got %d", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(0, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", rec.Code)
		}
	}
}
