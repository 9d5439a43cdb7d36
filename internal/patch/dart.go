package patch

import "regexp"

// dartEnvRe matches the environment-selector assignment in the Flutter
// package source, e.g. `static const String env = 'prod';`.
var dartEnvRe = regexp.MustCompile(`(static\s+const\s+String\s+env\s*=\s*)(['"])[^'"]*(['"])`)

// DartEnv rewrites the environment-selector assignment to the requested
// environment tag, preserving the original quote style.
func DartEnv(text, env string) (string, error) {
	if !dartEnvRe.MatchString(text) {
		return "", ErrPatternNotFound
	}
	return dartEnvRe.ReplaceAllString(text, "${1}${2}"+env+"${3}"), nil
}
