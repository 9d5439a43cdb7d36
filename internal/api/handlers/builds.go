package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Chailang/appPack/internal/build"
	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/progress"
)

// BuildStarter launches build sessions.
type BuildStarter interface {
	Start(ctx context.Context, req models.BuildRequest) (string, error)
}

// BuildHandler starts builds and streams their progress over SSE and
// WebSocket.
type BuildHandler struct {
	starter  BuildStarter
	source   progress.Source
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewBuildHandler creates a new build handler. interval is the progress
// streaming cadence.
func NewBuildHandler(starter BuildStarter, source progress.Source, interval time.Duration, logger *slog.Logger) *BuildHandler {
	return &BuildHandler{
		starter:  starter,
		source:   source,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// The browser UI is served from a different origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type startBuildResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Start handles POST /api/build/start.
func (h *BuildHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "请求体格式错误")
		return
	}

	sessionID, err := h.starter.Start(r.Context(), req)
	if err != nil {
		var cfgErr *build.ConfigError
		if errors.As(err, &cfgErr) {
			WriteBadRequest(w, cfgErr.Reason)
			return
		}
		h.logger.Error("starting build failed", "error", err)
		WriteInternalError(w, fmt.Sprintf("启动打包失败: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, startBuildResponse{
		SessionID: sessionID,
		Message:   "打包已开始",
	})
}

// Progress handles GET /api/build/progress/{sessionID} as an SSE stream.
// Client disconnects stop the stream only; the build keeps running.
func (h *BuildHandler) Progress(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		WriteBadRequest(w, "会话ID不能为空")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteInternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	poller := progress.NewPoller(h.source, h.interval, h.logger)
	err := poller.Run(r.Context(), sessionID, progress.SinkFunc(func(snap models.Snapshot) error {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}))
	if err != nil {
		h.logger.Debug("progress stream ended", "session_id", sessionID, "error", err)
	}
}

// Stream handles GET /api/build/ws/{sessionID}: the same frames as Progress
// over a WebSocket.
func (h *BuildHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		WriteBadRequest(w, "会话ID不能为空")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client frames so close messages cancel the stream.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	poller := progress.NewPoller(h.source, h.interval, h.logger)
	err = poller.Run(ctx, sessionID, progress.SinkFunc(func(snap models.Snapshot) error {
		return conn.WriteJSON(snap)
	}))
	if err != nil {
		h.logger.Debug("websocket stream ended", "session_id", sessionID, "error", err)
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
