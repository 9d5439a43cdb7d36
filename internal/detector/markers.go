package detector

import (
	"os"
	"path/filepath"
	"strings"
)

// isAndroidModule checks for an Android marker: a gradle wrapper script or a
// build.gradle file, directly or under an app subfolder.
func isAndroidModule(dir string) bool {
	candidates := []string{
		filepath.Join(dir, "gradlew"),
		filepath.Join(dir, "gradlew.bat"),
		filepath.Join(dir, "build.gradle"),
		filepath.Join(dir, "app", "build.gradle"),
	}
	for _, c := range candidates {
		if fileExists(c) {
			return true
		}
	}
	return false
}

// isIOSModule checks for an iOS marker: a subdirectory ending .xcworkspace
// or .xcodeproj. Unreadable directories are treated as non-matching.
func isIOSModule(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".xcworkspace") || strings.HasSuffix(name, ".xcodeproj") {
			return true
		}
	}
	return false
}

// isFlutterModule checks for a Flutter marker: a directory whose name
// contains "flutter" and that holds a pubspec.yaml.
func isFlutterModule(dir, name string) bool {
	if !strings.Contains(strings.ToLower(name), "flutter") {
		return false
	}
	return fileExists(filepath.Join(dir, "pubspec.yaml"))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
