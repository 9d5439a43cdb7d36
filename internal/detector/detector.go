// Package detector classifies the subdirectories of a project root as
// Android, iOS or Flutter modules by their structural markers.
package detector

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/Chailang/appPack/internal/models"
)

// Detection errors.
var (
	// ErrNotFound is returned when the project root does not exist.
	ErrNotFound = errors.New("project path does not exist")

	// ErrNotADirectory is returned when the project root is not a directory.
	ErrNotADirectory = errors.New("project path is not a directory")
)

// Detector analyzes a project root to find platform modules.
type Detector interface {
	// Detect enumerates the immediate subdirectories of root and returns
	// which platforms were found and where.
	Detect(ctx context.Context, root string) (*models.DetectionResult, error)
}

// DefaultDetector is the default implementation of the Detector interface.
type DefaultDetector struct{}

// New creates a new DefaultDetector.
func New() *DefaultDetector {
	return &DefaultDetector{}
}

// Detect scans one level deep. Unreadable subdirectories are skipped, never
// fatal. The first qualifying directory per platform wins; Flutter is
// recorded as a module location only and never contributes a buildable type.
func (d *DefaultDetector) Detect(ctx context.Context, root string) (*models.DetectionResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotADirectory
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	result := &models.DetectionResult{Types: []string{}}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())

		if result.Locations.Flutter == "" && isFlutterModule(dir, entry.Name()) {
			result.Locations.Flutter = entry.Name()
		}

		if result.Locations.Android == "" && isAndroidModule(dir) {
			result.Locations.Android = entry.Name()
			result.Types = append(result.Types, "android")
		}

		if result.Locations.Ios == "" && isIOSModule(dir) {
			result.Locations.Ios = entry.Name()
			result.Types = append(result.Types, "ios")
		}
	}

	return result, nil
}
