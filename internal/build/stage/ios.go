package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Chailang/appPack/internal/artifact"
	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/runner"
)

// ErrNoXcodeProject is returned when the iOS module holds neither an
// .xcworkspace nor an .xcodeproj.
var ErrNoXcodeProject = errors.New("no .xcworkspace or .xcodeproj found")

// exportOptionsPlist configures the unsigned ad-hoc style export.
const exportOptionsPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>method</key>
    <string>release-testing</string>
    <key>compileBitcode</key>
    <false/>
    <key>stripSwiftSymbols</key>
    <true/>
</dict>
</plist>`

// IOS archives and exports the Xcode project and copies the produced IPAs
// into the dated output tree.
type IOS struct {
	Runner *runner.Runner
	// Now is swappable for deterministic output directory names in tests.
	Now func() time.Time
}

// Build archives the project in iosDir with signing disabled, exports IPAs
// and copies them to outputRoot/ios/<Scheme timestamp>/. Unlike the Android
// stage, producing no IPA fails the stage.
func (s *IOS) Build(ctx context.Context, iosDir, outputRoot string, report Reporter) (*models.StageResult, error) {
	workspace, project, err := findXcodeEntry(iosDir)
	if err != nil {
		report.Log(models.LogError, "未找到.xcworkspace或.xcodeproj文件")
		return &models.StageResult{Success: false}, err
	}

	scheme := workspace
	if scheme == "" {
		scheme = project
	}
	scheme = strings.TrimSuffix(strings.TrimSuffix(scheme, ".xcodeproj"), ".xcworkspace")

	buildDir := filepath.Join(iosDir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return &models.StageResult{Success: false}, fmt.Errorf("creating build dir: %w", err)
	}
	archivePath := filepath.Join(buildDir, scheme+".xcarchive")

	archiveArgs := []string{}
	if workspace != "" {
		archiveArgs = append(archiveArgs, "-workspace", workspace)
	} else {
		archiveArgs = append(archiveArgs, "-project", project)
	}
	archiveArgs = append(archiveArgs,
		"-scheme", scheme,
		"-configuration", "Release",
		"-destination", "generic/platform=iOS",
		"archive",
		"-archivePath", archivePath,
	)

	report.Log(models.LogInfo, "开始执行iOS Archive命令")
	logf(report, models.LogInfo, "工作目录: %s", iosDir)
	logf(report, models.LogInfo, "Scheme: %s", scheme)
	logf(report, models.LogInfo, "命令: xcodebuild %s", strings.Join(archiveArgs, " "))

	res, err := s.Runner.Run(ctx, runner.Command{
		Name: "xcodebuild",
		Args: archiveArgs,
		Dir:  iosDir,
		Env:  noSigningEnv,
	}, relay(report))
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			logf(report, models.LogError, "iOS Archive失败，退出代码: %d", exitErr.Code)
			return &models.StageResult{Success: false, Output: res.Output}, err
		}
		logf(report, models.LogError, "执行Archive命令时出错: %v", err)
		return &models.StageResult{Success: false}, err
	}

	// xcodebuild can exit zero without producing an archive.
	if _, err := os.Stat(archivePath); err != nil {
		logf(report, models.LogError, "Archive文件不存在: %s", archivePath)
		report.Log(models.LogError, "请检查构建日志确认Archive是否成功创建")
		return &models.StageResult{Success: false, Output: res.Output},
			fmt.Errorf("archive not created: %s", archivePath)
	}

	logf(report, models.LogSuccess, "iOS Archive创建成功: %s", archivePath)
	report.Log(models.LogInfo, "开始导出IPA文件...")

	exportDir := filepath.Join(buildDir, "export")
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return &models.StageResult{Success: false}, fmt.Errorf("creating export dir: %w", err)
	}
	optionsPath := filepath.Join(buildDir, "ExportOptions.plist")
	if err := os.WriteFile(optionsPath, []byte(exportOptionsPlist), 0o644); err != nil {
		return &models.StageResult{Success: false}, fmt.Errorf("writing export options: %w", err)
	}

	exportArgs := []string{
		"-exportArchive",
		"-archivePath", archivePath,
		"-exportPath", exportDir,
		"-exportOptionsPlist", optionsPath,
	}
	res, err = s.Runner.Run(ctx, runner.Command{
		Name: "xcodebuild",
		Args: exportArgs,
		Dir:  iosDir,
		Env:  colorTermEnv,
	}, relay(report))
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			logf(report, models.LogError, "导出IPA失败，退出代码: %d", exitErr.Code)
			return &models.StageResult{Success: false, Output: res.Output}, err
		}
		logf(report, models.LogError, "执行导出命令时出错: %v", err)
		return &models.StageResult{Success: false}, err
	}

	report.Log(models.LogSuccess, "IPA导出成功，开始复制文件...")
	return s.copyIPAs(exportDir, outputRoot, scheme, report)
}

// copyIPAs collects every exported IPA, copying each containing directory so
// dSYM and manifest siblings travel with the binary.
func (s *IOS) copyIPAs(exportDir, outputRoot, scheme string, report Reporter) (*models.StageResult, error) {
	ipaFiles := artifact.FindByExt(exportDir, ".ipa")
	logf(report, models.LogInfo, "找到 %d 个IPA文件", len(ipaFiles))

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	dirName := fmt.Sprintf("%s %s", scheme, now().Format("2006-01-02 15-04-05"))
	dstDir := filepath.Join(outputRoot, "ios", dirName)

	groups := artifact.GroupByDir(ipaFiles)
	srcDirs := make([]string, 0, len(groups))
	for dir := range groups {
		srcDirs = append(srcDirs, dir)
	}
	sort.Strings(srcDirs)

	var copied []string
	for _, srcDir := range srcDirs {
		if _, err := artifact.CopyTree(srcDir, dstDir); err != nil {
			logf(report, models.LogError, "复制目录失败: %s - %v", dirName, err)
			continue
		}
		for _, ipa := range groups[srcDir] {
			copied = append(copied, fmt.Sprintf("IPA文件: %s", filepath.Base(ipa)))
		}
		logf(report, models.LogSuccess, "已复制IPA目录: %s", dirName)
	}

	if len(copied) == 0 {
		report.Log(models.LogError, "未找到或复制任何IPA文件")
		return &models.StageResult{Success: false}, errors.New("no IPA files found or copied")
	}

	output := "\n✅ iOS打包成功完成！\n"
	output += fmt.Sprintf("📁 输出目录: %s\n", filepath.Join(outputRoot, "ios"))
	output += fmt.Sprintf("\n已复制 %d 个文件：\n", len(copied))
	for _, f := range copied {
		output += fmt.Sprintf("  ✓ %s\n", f)
	}
	return &models.StageResult{Success: true, Output: output}, nil
}

// findXcodeEntry returns the workspace or project bundle directory names in
// iosDir. A workspace wins when both exist.
func findXcodeEntry(iosDir string) (workspace, project string, err error) {
	entries, err := os.ReadDir(iosDir)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", iosDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		switch {
		case strings.HasSuffix(entry.Name(), ".xcworkspace"):
			return entry.Name(), "", nil
		case strings.HasSuffix(entry.Name(), ".xcodeproj"):
			project = entry.Name()
		}
	}
	if project == "" {
		return "", "", ErrNoXcodeProject
	}
	return "", project, nil
}
