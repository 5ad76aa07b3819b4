package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/Strob0t/PromptForge/internal/config"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, closer := New(config.Logging{Level: "debug", Service: "test-svc"}, &buf)
	defer closer.Close()

	l.Debug("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "test-svc" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestNewAsync(t *testing.T) {
	var buf bytes.Buffer
	l, closer := New(config.Logging{Level: "info", Service: "test-svc", Async: true}, &buf)
	l.Info("queued")
	closer.Close()

	if !strings.Contains(buf.String(), `"queued"`) {
		t.Fatalf("record not flushed on close: %q", buf.String())
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, closer := New(config.Logging{Level: "warn"}, &buf)
	defer closer.Close()

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"ERROR", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	// Empty context returns empty string
	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	// Set and retrieve
	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestFromAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	From(WithRequestID(context.Background(), "req-9"), base).Info("x")
	if !strings.Contains(buf.String(), `"request_id":"req-9"`) {
		t.Fatalf("request_id missing: %q", buf.String())
	}

	buf.Reset()
	From(context.Background(), base).Info("y")
	if strings.Contains(buf.String(), "request_id") {
		t.Fatalf("unexpected request_id: %q", buf.String())
	}
}
