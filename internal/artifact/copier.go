// Package artifact locates build outputs in tool-specific directory layouts
// and replicates them into the dated output tree.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrSourceNotFound is returned when the copy source does not exist.
var ErrSourceNotFound = errors.New("source path does not exist")

// CopyResult describes a completed copy.
type CopyResult struct {
	Files   int
	Message string
}

// CopyTree recursively copies src into dst, creating dst and any missing
// intermediate directories. The directory structure under src is preserved.
func CopyTree(src, dst string) (*CopyResult, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	var files int
	if info.IsDir() {
		if files, err = copyDir(src, dst); err != nil {
			return nil, err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := copyFile(src, dst); err != nil {
			return nil, err
		}
		files = 1
	}

	return &CopyResult{
		Files:   files,
		Message: fmt.Sprintf("copied %s -> %s", src, dst),
	}, nil
}

func copyDir(src, dst string) (int, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", src, err)
	}

	var files int
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			n, err := copyDir(srcPath, dstPath)
			if err != nil {
				return files, err
			}
			files += n
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
