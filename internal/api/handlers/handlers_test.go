package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chailang/appPack/internal/build"
	"github.com/Chailang/appPack/internal/detector"
	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/settings"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestCheckProjectValidation(t *testing.T) {
	h := NewDetectHandler(detector.New(), testLogger())

	cases := []struct {
		name string
		body any
	}{
		{"empty path", map[string]string{"projectPath": ""}},
		{"missing path", map[string]string{"projectPath": "/no/such/dir"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.CheckProject, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	// A plain file is rejected too.
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	rec := postJSON(t, h.CheckProject, map[string]string{"projectPath": file})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckProjectDetects(t *testing.T) {
	root := t.TempDir()
	androidDir := filepath.Join(root, "android")
	require.NoError(t, os.MkdirAll(androidDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(androidDir, "gradlew"), []byte(""), 0o755))

	h := NewDetectHandler(detector.New(), testLogger())
	rec := postJSON(t, h.CheckProject, map[string]string{"projectPath": root})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[checkProjectResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"android"}, resp.ProjectTypes)
	assert.Equal(t, "android", resp.ProjectInfo.Android)
	assert.Contains(t, resp.Message, "android")
}

func TestCheckProjectEmptyDetection(t *testing.T) {
	h := NewDetectHandler(detector.New(), testLogger())
	rec := postJSON(t, h.CheckProject, map[string]string{"projectPath": t.TempDir()})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[checkProjectResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.ProjectTypes)
	assert.Contains(t, resp.Message, "未检测到")
}

// stubStarter scripts BuildStarter.
type stubStarter struct {
	id  string
	err error
}

func (s *stubStarter) Start(ctx context.Context, req models.BuildRequest) (string, error) {
	return s.id, s.err
}

// stubSource is a fixed-frame progress source.
type stubSource struct {
	snaps  []models.Snapshot
	missed bool
}

func (s *stubSource) Snapshot(id string, after int) (models.Snapshot, bool) {
	if s.missed {
		return models.Snapshot{}, false
	}
	// Terminal frame carries everything; cursors are exercised elsewhere.
	snap := s.snaps[len(s.snaps)-1]
	if after > 0 {
		snap.Logs = nil
	}
	return snap, true
}

func TestBuildStart(t *testing.T) {
	h := NewBuildHandler(&stubStarter{id: "123-abc"}, &stubSource{}, time.Millisecond, testLogger())
	rec := postJSON(t, h.Start, models.BuildRequest{
		ProjectPath: "/p",
		OutputPath:  "/o",
		BuildType:   models.BuildTypeAndroid,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[startBuildResponse](t, rec)
	assert.Equal(t, "123-abc", resp.SessionID)
	assert.Equal(t, "打包已开始", resp.Message)
}

func TestBuildStartRejected(t *testing.T) {
	h := NewBuildHandler(&stubStarter{err: &build.ConfigError{Reason: "项目路径和输出路径不能为空"}},
		&stubSource{}, time.Millisecond, testLogger())
	rec := postJSON(t, h.Start, models.BuildRequest{BuildType: models.BuildTypeAndroid})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	apiErr := decodeBody[APIError](t, rec)
	assert.Equal(t, ErrCodeInvalidRequest, apiErr.Code)
	assert.Equal(t, "项目路径和输出路径不能为空", apiErr.Message)
}

func testRouter(h *BuildHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/build/progress/{sessionID}", h.Progress)
	r.Get("/api/build/ws/{sessionID}", h.Stream)
	return r
}

func TestProgressSSE(t *testing.T) {
	source := &stubSource{snaps: []models.Snapshot{{
		Status:   models.StatusCompleted,
		Progress: 100,
		Logs:     []models.LogEntry{models.NewLogEntry(models.LogSuccess, "done")},
	}}}
	h := NewBuildHandler(&stubStarter{}, source, time.Millisecond, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/build/progress/s1", nil)
	rec := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	scanner := bufio.NewScanner(rec.Body)
	var frames []models.Snapshot
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap models.Snapshot
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		frames = append(frames, snap)
	}
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, models.StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Progress)
}

func TestProgressSSEUnknownSession(t *testing.T) {
	h := NewBuildHandler(&stubStarter{}, &stubSource{missed: true}, time.Millisecond, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/build/progress/nope", nil)
	rec := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `"ended":true`)
}

func TestProgressWebSocket(t *testing.T) {
	source := &stubSource{snaps: []models.Snapshot{{
		Status:   models.StatusCompleted,
		Progress: 100,
	}}}
	h := NewBuildHandler(&stubStarter{}, source, time.Millisecond, testLogger())

	srv := httptest.NewServer(testRouter(h))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/build/ws/s1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap models.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, models.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
}

func newSettingsStore(t *testing.T) *settings.Store {
	t.Helper()
	st, err := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"), nil, testLogger())
	require.NoError(t, err)
	return st
}

func TestSettingsRoundTrip(t *testing.T) {
	h := NewSettingsHandler(newSettingsStore(t), testLogger())

	rec := postJSON(t, h.Update, map[string]any{
		"projectBasePath": "/work",
		"projectPaths":    []string{"/work/a"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[settingsResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "/work", resp.Config.ProjectBasePath)
	assert.Equal(t, []string{"/work/a"}, resp.Config.ProjectPaths)
}

func TestSettingsAddPath(t *testing.T) {
	h := NewSettingsHandler(newSettingsStore(t), testLogger())

	rec := postJSON(t, h.AddPath, addPathRequest{Type: "project", Path: "/work/a"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[settingsResponse](t, rec)
	assert.Equal(t, []string{"/work/a"}, resp.Config.ProjectPaths)

	rec = postJSON(t, h.AddPath, addPathRequest{Type: "bogus", Path: "/x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.AddPath, addPathRequest{Type: "project"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDirectoriesList(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "beta"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(base, "alpha"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "file.txt"), []byte("x"), 0o644))

	h := NewDirectoriesHandler(testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/directories?basePath="+base, nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[directoriesResponse](t, rec)
	require.Len(t, resp.Directories, 2)
	assert.Equal(t, "alpha", resp.Directories[0].Name)
	assert.Equal(t, "beta", resp.Directories[1].Name)
}

func TestDirectoriesListValidation(t *testing.T) {
	h := NewDirectoriesHandler(testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/directories", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/directories?basePath=/no/such", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
