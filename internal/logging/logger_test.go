package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup := New(Options{Level: "info", Format: "json", Output: &buf})
	defer cleanup()

	logger.Info("row inserted", "table", "users")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "row inserted" {
		t.Errorf("msg = %v, want %q", entry["msg"], "row inserted")
	}
	if entry["table"] != "users" {
		t.Errorf("table = %v, want %q", entry["table"], "users")
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup := New(Options{Level: "warn", Format: "text", Output: &buf})
	defer cleanup()

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn record should be written")
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(h).With("component", "test")

	logger.Info("first")
	logger.Error("second")

	if !strings.Contains(a.String(), "first") || !strings.Contains(a.String(), "second") {
		t.Errorf("first handler missed records: %q", a.String())
	}
	if strings.Contains(b.String(), "first") {
		t.Errorf("second handler should drop info records: %q", b.String())
	}
	if !strings.Contains(b.String(), "component=test") {
		t.Errorf("attrs not propagated: %q", b.String())
	}
}

func TestFromContext_NoRequestID(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext returned nil")
	}
}
