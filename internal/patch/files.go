package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// skipDirs are never descended during config file searches.
var skipDirs = map[string]bool{
	"build":        true,
	".git":         true,
	"Pods":         true,
	"DerivedData":  true,
	"node_modules": true,
}

// AndroidVersion patches the centralized gradle version config under the
// Android module (config.gradle at the module root, then under app/).
// Returns the path of the patched file.
func AndroidVersion(androidDir, name, code string) (string, error) {
	candidates := []string{
		filepath.Join(androidDir, "config.gradle"),
		filepath.Join(androidDir, "app", "config.gradle"),
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		patched, err := GradleVersion(string(data), name, code)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		if err := writePreservingMode(path, patched); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: config.gradle under %s", ErrFileNotFound, androidDir)
}

// IOSVersion patches CFBundleShortVersionString / CFBundleVersion in the
// module's Info.plist, checking conventional locations first and falling
// back to a bounded recursive search. Returns the path of the patched file.
func IOSVersion(iosDir, short, build string) (string, error) {
	path := findInfoPlist(iosDir)
	if path == "" {
		return "", fmt.Errorf("%w: Info.plist under %s", ErrFileNotFound, iosDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	patched, err := PlistVersion(string(data), short, build)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if err := writePreservingMode(path, patched); err != nil {
		return "", err
	}
	return path, nil
}

// FlutterEnv rewrites the environment-selector assignment in the first
// matching Dart source file under the Flutter module. Returns the path of
// the patched file.
func FlutterEnv(flutterDir, env string) (string, error) {
	var patchedPath string
	err := filepath.WalkDir(flutterDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".dart") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		patched, err := DartEnv(string(data), env)
		if err != nil {
			return nil // pattern not in this file, keep looking
		}
		if err := writePreservingMode(path, patched); err != nil {
			return err
		}
		patchedPath = path
		return filepath.SkipAll
	})
	if err != nil {
		return "", err
	}
	if patchedPath == "" {
		return "", fmt.Errorf("%w: env selector under %s", ErrPatternNotFound, flutterDir)
	}
	return patchedPath, nil
}

// findInfoPlist locates the module's Info.plist: conventional spots first,
// then a depth-bounded walk skipping build and version-control directories.
func findInfoPlist(iosDir string) string {
	if p := filepath.Join(iosDir, "Info.plist"); fileExists(p) {
		return p
	}

	entries, err := os.ReadDir(iosDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || skipDirs[entry.Name()] {
				continue
			}
			if strings.HasSuffix(entry.Name(), ".xcodeproj") || strings.HasSuffix(entry.Name(), ".xcworkspace") {
				continue
			}
			if p := filepath.Join(iosDir, entry.Name(), "Info.plist"); fileExists(p) {
				return p
			}
		}
	}

	const maxDepth = 4
	var found string
	_ = filepath.WalkDir(iosDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(iosDir, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasSuffix(d.Name(), ".xcodeproj") || strings.HasSuffix(d.Name(), ".xcworkspace") {
				return filepath.SkipDir
			}
			if strings.Count(rel, string(filepath.Separator)) >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "Info.plist" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writePreservingMode(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
