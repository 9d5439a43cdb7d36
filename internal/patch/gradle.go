// Package patch rewrites well-known version fields in hand-authored build
// configuration files using targeted text substitution. The files are never
// parsed structurally; only specific key patterns are touched so the
// surrounding formatting survives untouched.
package patch

import (
	"errors"
	"regexp"
)

// Patch errors.
var (
	// ErrPatternNotFound is returned when the expected field pattern is
	// absent from the file text.
	ErrPatternNotFound = errors.New("version field pattern not found")

	// ErrFileNotFound is returned when no candidate file exists.
	ErrFileNotFound = errors.New("version config file not found")
)

var (
	gradleVersionNameRe = regexp.MustCompile(`(versionName\s*:\s*)(['"])[^'"]*(['"])(\s*,)`)
	gradleVersionCodeRe = regexp.MustCompile(`(versionCode\s*:\s*)\d+(\s*,)`)
)

// GradleVersion rewrites the versionName and/or versionCode assignments in a
// centralized gradle version config. Empty arguments leave the corresponding
// field untouched. The original quote style and spacing are preserved.
func GradleVersion(text, name, code string) (string, error) {
	if name != "" {
		if !gradleVersionNameRe.MatchString(text) {
			return "", ErrPatternNotFound
		}
		text = gradleVersionNameRe.ReplaceAllString(text, "${1}${2}"+name+"${3}${4}")
	}
	if code != "" {
		if !gradleVersionCodeRe.MatchString(text) {
			return "", ErrPatternNotFound
		}
		text = gradleVersionCodeRe.ReplaceAllString(text, "${1}"+code+"${2}")
	}
	return text, nil
}
