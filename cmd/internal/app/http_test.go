package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestHandler_WithoutDatabase(t *testing.T) {
	t.Parallel()

	h := newTestApp(t, Config{MetricsEnabled: true}).Handler()

	if rr := serve(h, http.MethodGet, "/healthz"); rr.Code != http.StatusOK || rr.Body.String() != "ok\n" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
	if rr := serve(h, http.MethodGet, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rr.Code)
	}
	rr := serve(h, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("metrics: %d", rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/self/join/ateam"); rr.Code != http.StatusNotFound {
		t.Fatalf("invitee routes must not be served without a database: %d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestHandler_ReadinessRequiresDB(t *testing.T) {
	t.Parallel()

	h := newTestApp(t, Config{ReadinessRequireDB: true}).Handler()
	if rr := serve(h, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: %d", rr.Code)
	}
}

func TestHandler_MetricsDisabled(t *testing.T) {
	t.Parallel()

	h := newTestApp(t, Config{}).Handler()
	if rr := serve(h, http.MethodGet, "/metrics"); rr.Code != http.StatusNotFound {
		t.Fatalf("metrics should be off: %d", rr.Code)
	}
}

func TestNew_RequiresTokenKeyWithDatabase(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(context.Background(), Config{DatabaseURL: "postgres://localhost:1/packs"}, log)
	if err == nil || !strings.Contains(err.Error(), "PACKS_TOKEN_HMAC_KEY") {
		t.Fatalf("expected key policy error, got %v", err)
	}
}
