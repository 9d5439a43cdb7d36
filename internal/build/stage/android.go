package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Chailang/appPack/internal/artifact"
	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/runner"
)

// ErrGradlewMissing is returned when the Android module has no gradle wrapper.
var ErrGradlewMissing = errors.New("gradlew not found")

var gradleTasks = []string{"clean", "assembleRelease", "bundleRelease"}

// Android builds release APKs and AABs through the project's gradle wrapper
// and copies them into the dated output tree.
type Android struct {
	Runner *runner.Runner
}

// Build runs the gradle release tasks in androidDir and copies the outputs
// under outputRoot/android. A failed gradle run fails the stage; a clean run
// that produced nothing copyable is only a warning.
func (s *Android) Build(ctx context.Context, androidDir, outputRoot string, report Reporter) (*models.StageResult, error) {
	gradlew := filepath.Join(androidDir, "gradlew")
	if _, err := os.Stat(gradlew); err != nil {
		report.Log(models.LogError, "未找到gradlew文件，请确保这是Android项目")
		return &models.StageResult{Success: false}, fmt.Errorf("%w: %s", ErrGradlewMissing, gradlew)
	}
	if err := os.Chmod(gradlew, 0o755); err != nil {
		logf(report, models.LogWarning, "设置gradlew执行权限失败: %v", err)
	}

	logf(report, models.LogInfo, "开始执行Android打包命令: ./gradlew %s", strings.Join(gradleTasks, " "))
	logf(report, models.LogInfo, "工作目录: %s", androidDir)

	res, err := s.Runner.Run(ctx, runner.Command{
		Name: "./gradlew",
		Args: gradleTasks,
		Dir:  androidDir,
		Env:  colorTermEnv,
	}, relay(report))
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			logf(report, models.LogError, "Android打包失败，退出代码: %d", exitErr.Code)
			return &models.StageResult{Success: false, Output: res.Output}, err
		}
		logf(report, models.LogError, "执行打包命令时出错: %v", err)
		return &models.StageResult{Success: false}, err
	}

	report.Log(models.LogSuccess, "Android打包命令执行完成，开始复制文件...")

	var copied []string
	copied = append(copied, s.copyOutputs(androidDir, outputRoot, artifact.KindAPK, ".apk", report)...)
	copied = append(copied, s.copyOutputs(androidDir, outputRoot, artifact.KindBundle, ".aab", report)...)

	output := "\n✅ Android打包成功完成！\n"
	output += fmt.Sprintf("📁 输出目录: %s\n", filepath.Join(outputRoot, "android"))
	if len(copied) == 0 {
		report.Log(models.LogWarning, "未找到可复制的APK/AAB文件")
		output += "⚠️ 未找到可复制的APK/AAB文件\n"
	} else {
		output += fmt.Sprintf("\n已复制 %d 个文件：\n", len(copied))
		for _, f := range copied {
			output += fmt.Sprintf("  ✓ %s\n", f)
		}
	}

	return &models.StageResult{Success: true, Output: output}, nil
}

// copyOutputs copies every located variant's release directory to
// outputRoot/android/<kind>/<variant>/release and returns one summary line
// per copied variant.
func (s *Android) copyOutputs(androidDir, outputRoot string, kind artifact.OutputKind, ext string, report Reporter) []string {
	located := artifact.LocateRelease(androidDir, kind, ext)
	if len(located) == 0 {
		return nil
	}

	label := strings.ToUpper(strings.TrimPrefix(ext, "."))
	var copied []string
	for _, loc := range located {
		if len(loc.Files) == 0 {
			continue
		}
		logf(report, models.LogInfo, "变体 %s 找到 %d 个%s文件", loc.Variant, len(loc.Files), label)

		dst := filepath.Join(outputRoot, "android", string(kind), loc.Variant, "release")
		if _, err := artifact.CopyTree(loc.Dir, dst); err != nil {
			logf(report, models.LogError, "复制%s变体时出错: %v", label, err)
			continue
		}
		copied = append(copied, fmt.Sprintf("%s (%s): %d 个文件 -> %s", label, loc.Variant, len(loc.Files), dst))
		logf(report, models.LogSuccess, "已复制%s: %s", label, loc.Variant)
	}
	return copied
}
