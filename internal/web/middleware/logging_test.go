package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := chi.NewRouter()
	r.Use(Logger)
	r.Post("/api/tables/{table}/rows", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"x"}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/tables/users/rows", nil)
	req.Header.Set("User-Agent", "test-agent")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "users", entry["table"])
	assert.Equal(t, "/api/tables/{table}/rows", entry["route"])
	assert.Equal(t, float64(422), entry["status"])
	assert.Equal(t, float64(13), entry["bytes"])
	assert.Equal(t, "192.0.2.1", entry["ip"])
	assert.Equal(t, "test-agent", entry["user_agent"])
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		method string
		status int
		want   slog.Level
	}{
		{http.MethodGet, http.StatusOK, slog.LevelInfo},
		{http.MethodGet, http.StatusNotFound, slog.LevelInfo},
		{http.MethodDelete, http.StatusPreconditionFailed, slog.LevelWarn},
		{http.MethodPost, http.StatusCreated, slog.LevelInfo},
		{http.MethodGet, http.StatusInternalServerError, slog.LevelError},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.method, tt.status); got != tt.want {
			t.Errorf("requestLevel(%s, %d) = %v, want %v", tt.method, tt.status, got, tt.want)
		}
	}
}
