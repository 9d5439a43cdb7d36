package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Chailang/appPack/internal/settings"
)

// SettingsHandler serves the persisted configuration endpoints.
type SettingsHandler struct {
	store  *settings.Store
	logger *slog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(store *settings.Store, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

type settingsResponse struct {
	Success bool              `json:"success"`
	Config  settings.Settings `json:"config"`
	Message string            `json:"message,omitempty"`
}

// Get handles GET /api/config.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, settingsResponse{
		Success: true,
		Config:  h.store.Get(),
	})
}

type updateSettingsRequest struct {
	settings.Settings
	GitPassphrase *string `json:"gitPassphrase,omitempty"`
}

// Update handles POST /api/config. The passphrase is only changed when the
// request carries the field.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "请求体格式错误")
		return
	}

	updated, err := h.store.Update(req.Settings)
	if err != nil {
		h.logger.Error("saving settings failed", "error", err)
		WriteInternalError(w, "保存配置失败")
		return
	}

	if req.GitPassphrase != nil {
		if err := h.store.SetPassphrase(*req.GitPassphrase); err != nil {
			h.logger.Error("storing passphrase failed", "error", err)
			WriteInternalError(w, "保存凭证失败")
			return
		}
	}

	WriteJSON(w, http.StatusOK, settingsResponse{
		Success: true,
		Config:  updated,
		Message: "配置已保存",
	})
}

type addPathRequest struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// AddPath handles POST /api/config/add-path.
func (h *SettingsHandler) AddPath(w http.ResponseWriter, r *http.Request) {
	var req addPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "请求体格式错误")
		return
	}
	if req.Type == "" || req.Path == "" {
		WriteBadRequest(w, "参数不完整")
		return
	}

	updated, err := h.store.AddPath(req.Type, req.Path)
	if err != nil {
		if errors.Is(err, settings.ErrUnknownPathKind) {
			WriteBadRequest(w, fmt.Sprintf("未知的路径类型: %s", req.Type))
			return
		}
		h.logger.Error("adding path failed", "error", err)
		WriteInternalError(w, "保存配置失败")
		return
	}

	WriteJSON(w, http.StatusOK, settingsResponse{
		Success: true,
		Config:  updated,
	})
}
