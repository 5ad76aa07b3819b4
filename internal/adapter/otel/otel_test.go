package otel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/PromptForge/internal/config"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OTel{ServiceName: "promptforge"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned %v", err)
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.RecordBackendCall(context.Background(), "load personas", errors.New("boom"))
	m.RecordActivation(context.Background(), 1, 21)
}

func TestMetricsOnGlobalNoopProvider(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordBackendCall(context.Background(), "load personas", nil)
	m.RecordActivation(context.Background(), 1, 21)
}

func TestEndSpanWithError(t *testing.T) {
	_, span := StartBackendSpan(context.Background(), "delete persona")
	EndSpan(span, errors.New("boom"))
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	h := HTTPMiddleware("promptforge")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
