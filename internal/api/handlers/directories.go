package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
)

// DirectoriesHandler lists subdirectories for the path picker.
type DirectoriesHandler struct {
	logger *slog.Logger
}

// NewDirectoriesHandler creates a new directories handler.
func NewDirectoriesHandler(logger *slog.Logger) *DirectoriesHandler {
	return &DirectoriesHandler{logger: logger}
}

type directoryEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type directoriesResponse struct {
	Success     bool             `json:"success"`
	Directories []directoryEntry `json:"directories"`
}

// List handles GET /api/directories?basePath=.
func (h *DirectoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	basePath := r.URL.Query().Get("basePath")
	if basePath == "" {
		WriteBadRequest(w, "基础路径不能为空")
		return
	}

	info, err := os.Stat(basePath)
	if err != nil {
		WriteBadRequest(w, "路径不存在")
		return
	}
	if !info.IsDir() {
		WriteBadRequest(w, "路径不是目录")
		return
	}

	entries, err := os.ReadDir(basePath)
	if err != nil {
		h.logger.Error("listing directories failed", "path", basePath, "error", err)
		WriteInternalError(w, "获取目录列表失败")
		return
	}

	dirs := []directoryEntry{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirs = append(dirs, directoryEntry{
			Name: entry.Name(),
			Path: filepath.Join(basePath, entry.Name()),
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })

	WriteJSON(w, http.StatusOK, directoriesResponse{
		Success:     true,
		Directories: dirs,
	})
}
