package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	// None of these may panic.
	m.ObserveRequest("GET", "/healthz", 200, time.Millisecond)
	m.RateLimited("/styles")
	m.Derivative(ResultHit)
	m.Rendered("vips", 10, time.Second)
	m.Flushed(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from a nil handler, got %d", rec.Code)
	}
}

func TestMetrics_Exposition(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/styles/:style/:scheme/*path", 200, 5*time.Millisecond)
	m.Derivative(ResultMiss)
	m.Rendered("imaging", 2048, 100*time.Millisecond)
	m.Flushed(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`neo_image_http_requests_total{method="GET",route="/styles/:style/:scheme/*path",status="200"} 1`,
		`neo_image_derivatives_total{result="miss"} 1`,
		`neo_image_derivative_bytes_total 2048`,
		`neo_image_style_flushes_total 3`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}
