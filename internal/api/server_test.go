package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chailang/appPack/internal/build"
	"github.com/Chailang/appPack/internal/settings"
	"github.com/Chailang/appPack/pkg/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"), nil, logger)
	require.NoError(t, err)

	cfg := &config.Config{
		Host:            "127.0.0.1",
		Port:            3000,
		ShutdownTimeout: time.Second,
		Session: config.SessionConfig{
			Retention:    time.Minute,
			PollInterval: 10 * time.Millisecond,
		},
		Notify: config.NotifyConfig{Timeout: time.Second},
	}

	orch := build.New(build.Config{Logger: logger, Retention: time.Minute})
	return NewServer(cfg, orch, st, logger)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRoutesWired(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/api/check-project", `{"projectPath":""}`, http.StatusBadRequest},
		{http.MethodPost, "/api/build/start", `{"projectPath":"","outputPath":"","buildType":"android"}`, http.StatusBadRequest},
		{http.MethodGet, "/api/config", "", http.StatusOK},
		{http.MethodGet, "/api/directories", "", http.StatusBadRequest},
		{http.MethodGet, "/api/build/progress/unknown", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestUnknownSessionStreamEnds(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/build/progress/123-missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `"ended":true`)
}
