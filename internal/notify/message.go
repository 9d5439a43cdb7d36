package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Chailang/appPack/internal/models"
)

// BuildReport carries everything the completion message needs.
type BuildReport struct {
	ProjectName string
	ProjectPath string
	BuildType   models.BuildType
	Status      models.SessionStatus
	Duration    time.Duration
	OutputPath  string
	Artifacts   []string
	Errors      []models.StageError
	RepoSummary string
	HostIP      string
}

// FormatReport renders the Lark text message for a finished build.
func FormatReport(r BuildReport) string {
	var b strings.Builder

	icon := "✅"
	if r.Status == models.StatusFailed {
		icon = "❌"
	}
	fmt.Fprintf(&b, "%s 打包完成: %s\n", icon, r.ProjectName)
	fmt.Fprintf(&b, "状态: %s\n", r.Status)
	fmt.Fprintf(&b, "类型: %s\n", r.BuildType)
	fmt.Fprintf(&b, "耗时: %s\n", r.Duration.Round(time.Second))
	if r.RepoSummary != "" {
		fmt.Fprintf(&b, "代码: %s\n", r.RepoSummary)
	}
	if r.HostIP != "" {
		fmt.Fprintf(&b, "主机: %s\n", r.HostIP)
	}
	if r.OutputPath != "" {
		fmt.Fprintf(&b, "产物目录: %s\n", r.OutputPath)
	}

	if len(r.Artifacts) > 0 {
		b.WriteString("产物:\n")
		for _, path := range r.Artifacts {
			fmt.Fprintf(&b, "  - %s (%s)\n", filepath.Base(path), fileSize(path))
		}
	}

	for _, se := range r.Errors {
		fmt.Fprintf(&b, "错误 [%s]: %s\n", se.Stage, se.Message)
	}

	return strings.TrimRight(b.String(), "\n")
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.Bytes(uint64(info.Size()))
}
