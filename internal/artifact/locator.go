package artifact

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OutputKind selects which gradle output family to locate.
type OutputKind string

const (
	KindAPK    OutputKind = "apk"
	KindBundle OutputKind = "bundle"
)

// Located describes one build variant's release output directory.
type Located struct {
	Variant string
	Dir     string
	Files   []string
}

// LocateRelease finds gradle release outputs of the given kind under the
// Android module. Gradle versions differ on where outputs land, so two
// candidate roots are checked in priority order and the first that exists
// wins. Within the chosen root, each variant subdirectory's release/ folder
// is enumerated for files matching ext.
func LocateRelease(androidDir string, kind OutputKind, ext string) []Located {
	candidates := []string{
		filepath.Join(androidDir, "build", "app", "outputs", string(kind)),
		filepath.Join(androidDir, "app", "build", "outputs", string(kind)),
	}

	var base string
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			base = c
			break
		}
	}
	if base == "" {
		return nil
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}

	var located []Located
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		releaseDir := filepath.Join(base, entry.Name(), "release")
		files, err := os.ReadDir(releaseDir)
		if err != nil {
			continue
		}
		var matched []string
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ext) {
				matched = append(matched, filepath.Join(releaseDir, f.Name()))
			}
		}
		located = append(located, Located{
			Variant: entry.Name(),
			Dir:     releaseDir,
			Files:   matched,
		})
	}
	return located
}

// FindByExt descends dir to arbitrary depth collecting every file whose name
// ends with ext, in deterministic order. Unreadable directories are skipped.
func FindByExt(dir, ext string) []string {
	var found []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ext) {
			found = append(found, path)
		}
		return nil
	})
	sort.Strings(found)
	return found
}

// GroupByDir groups file paths by their containing directory.
func GroupByDir(paths []string) map[string][]string {
	groups := make(map[string][]string)
	for _, p := range paths {
		dir := filepath.Dir(p)
		groups[dir] = append(groups[dir], p)
	}
	return groups
}
