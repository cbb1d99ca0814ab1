package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/distributor/internal/config"
	"github.com/aristath/distributor/internal/di"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir:          t.TempDir(),
		Port:             8001,
		DevMode:          true,
		DefaultDecimals:  6,
		RemainderPolicy:  "none",
		SchedulerEnabled: true,
		Backup:           &config.BackupConfig{Schedule: "@daily", RetentionDays: 30},
	}

	container, _, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "distributor", body["service"])
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)

	// Generate one request so the HTTP collectors have a sample
	s.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "distributor_http_requests_total")
}

func TestServer_ModuleRoutesMounted(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "presets", method: http.MethodGet, path: "/api/allocation/presets", status: http.StatusOK},
		{name: "new draft", method: http.MethodPost, path: "/api/allocation/draft", status: http.StatusOK},
		{name: "runs", method: http.MethodGet, path: "/api/distribution/runs", status: http.StatusOK},
		{name: "configs", method: http.MethodGet, path: "/api/configs", status: http.StatusOK},
		{name: "missing config", method: http.MethodGet, path: "/api/configs/nope", status: http.StatusNotFound},
		{name: "system status", method: http.MethodGet, path: "/api/system/status", status: http.StatusOK},
		{name: "database stats", method: http.MethodGet, path: "/api/system/database", status: http.StatusOK},
		{name: "backups disabled", method: http.MethodGet, path: "/api/system/backups", status: http.StatusServiceUnavailable},
		{name: "unknown", method: http.MethodGet, path: "/api/nothing", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/configs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
