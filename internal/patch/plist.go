package patch

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	plistShortVersionRe = regexp.MustCompile(`(<key>CFBundleShortVersionString</key>\s*<string>)[^<]*(</string>)`)
	plistBuildVersionRe = regexp.MustCompile(`(<key>CFBundleVersion</key>\s*<string>)[^<]*(</string>)`)
)

// PlistVersion rewrites or inserts the two standard version keys in an
// Info.plist. Existing entries are rewritten in place; missing entries are
// inserted just before the root dictionary closes. Empty arguments leave the
// corresponding key untouched.
func PlistVersion(text, short, build string) (string, error) {
	var err error
	if short != "" {
		text, err = setPlistString(text, plistShortVersionRe, "CFBundleShortVersionString", short)
		if err != nil {
			return "", err
		}
	}
	if build != "" {
		text, err = setPlistString(text, plistBuildVersionRe, "CFBundleVersion", build)
		if err != nil {
			return "", err
		}
	}
	return text, nil
}

func setPlistString(text string, re *regexp.Regexp, key, value string) (string, error) {
	if re.MatchString(text) {
		return re.ReplaceAllString(text, "${1}"+value+"${2}"), nil
	}

	// Insert before the root dict close, which is the last </dict>.
	idx := strings.LastIndex(text, "</dict>")
	if idx < 0 {
		return "", ErrPatternNotFound
	}
	entry := fmt.Sprintf("\t<key>%s</key>\n\t<string>%s</string>\n", key, value)
	return text[:idx] + entry + text[idx:], nil
}
