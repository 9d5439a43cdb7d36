package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/Chailang/appPack/internal/detector"
	"github.com/Chailang/appPack/internal/models"
)

// DetectHandler answers project-type checks for the picker UI.
type DetectHandler struct {
	detector detector.Detector
	logger   *slog.Logger
}

// NewDetectHandler creates a new detect handler.
func NewDetectHandler(det detector.Detector, logger *slog.Logger) *DetectHandler {
	return &DetectHandler{detector: det, logger: logger}
}

type checkProjectRequest struct {
	ProjectPath string `json:"projectPath"`
}

type checkProjectResponse struct {
	Success      bool                      `json:"success"`
	ProjectTypes []string                  `json:"projectTypes"`
	ProjectInfo  models.DetectionLocations `json:"projectInfo"`
	Message      string                    `json:"message"`
}

// CheckProject handles POST /api/check-project.
func (h *DetectHandler) CheckProject(w http.ResponseWriter, r *http.Request) {
	var req checkProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "请求体格式错误")
		return
	}
	if req.ProjectPath == "" {
		WriteBadRequest(w, "项目路径不能为空")
		return
	}

	info, err := os.Stat(req.ProjectPath)
	if err != nil {
		WriteBadRequest(w, "项目路径不存在")
		return
	}
	if !info.IsDir() {
		WriteBadRequest(w, "项目路径必须是一个目录")
		return
	}

	det, err := h.detector.Detect(r.Context(), req.ProjectPath)
	if err != nil {
		if errors.Is(err, detector.ErrNotADirectory) || errors.Is(err, detector.ErrNotFound) {
			WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("project detection failed", "path", req.ProjectPath, "error", err)
		WriteInternalError(w, fmt.Sprintf("检查项目失败: %v", err))
		return
	}

	message := "未检测到Android或iOS项目"
	if len(det.Types) > 0 {
		message = "检测到项目类型: " + strings.Join(det.Types, ", ")
	}

	WriteJSON(w, http.StatusOK, checkProjectResponse{
		Success:      true,
		ProjectTypes: det.Types,
		ProjectInfo:  det.Locations,
		Message:      message,
	})
}
