package stage

import (
	"path/filepath"

	"github.com/Chailang/appPack/internal/models"
	"github.com/Chailang/appPack/internal/patch"
)

// Version applies requested version and environment patches before the
// platform builds. Every failure here is advisory; the build proceeds with
// the files as they are.
type Version struct{}

// Apply patches the detected modules according to the request and returns
// one StageError per file that could not be patched.
func (s *Version) Apply(root string, det *models.DetectionResult, req models.BuildRequest, report Reporter) []models.StageError {
	var errs []models.StageError
	fail := func(stage string, err error) {
		logf(report, models.LogWarning, "修改版本信息失败 [%s]: %v", stage, err)
		errs = append(errs, models.StageError{Stage: stage, Message: err.Error()})
	}

	if det.Locations.Flutter != "" && req.EnvType != "" {
		dir := filepath.Join(root, det.Locations.Flutter)
		file, err := patch.FlutterEnv(dir, req.EnvType)
		if err != nil {
			fail("flutter-env", err)
		} else {
			logf(report, models.LogSuccess, "已切换Flutter环境为 %s: %s", req.EnvType, file)
		}
	}

	if det.Locations.Android != "" && (req.VersionName != "" || req.VersionCode != "") {
		dir := filepath.Join(root, det.Locations.Android)
		file, err := patch.AndroidVersion(dir, req.VersionName, req.VersionCode)
		if err != nil {
			fail("android-version", err)
		} else {
			logf(report, models.LogSuccess, "已更新Android版本信息: %s", file)
		}
	}

	if det.Locations.Ios != "" && (req.VersionName != "" || req.VersionCode != "") {
		build := req.VersionCode
		if build == "" {
			build = req.VersionName
		}
		dir := filepath.Join(root, det.Locations.Ios)
		file, err := patch.IOSVersion(dir, req.VersionName, build)
		if err != nil {
			fail("ios-version", err)
		} else {
			logf(report, models.LogSuccess, "已更新iOS版本信息: %s", file)
		}
	}

	return errs
}
