// Package pathutil holds the string helpers shared by the resolution rules
// and the path index. Every function is pure; the empty string stands in for
// a missing path and is returned unchanged wherever an input is echoed back.
package pathutil

import (
	"regexp"
	"strings"
)

// DAMRoot is the root every resolvable content path lives under.
const DAMRoot = "/content/dam/"

var (
	localePattern = regexp.MustCompile(`^[a-zA-Z]{2}([-_][a-zA-Z]{2})?$`)
	schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	slashRun      = regexp.MustCompile(`/{2,}`)
)

// IsLocaleSegment reports whether a single path segment looks like a locale:
// a two letter language code ("en") or a language-region pair ("en-US",
// "fr_CA").
func IsLocaleSegment(segment string) bool {
	return localePattern.MatchString(segment)
}

// RemoveLocaleFromPath strips every locale segment that appears after the
// DAM root.
//
// Examples:
//   - RemoveLocaleFromPath("/content/dam/en-US/images/photo.jpg") → "/content/dam/images/photo.jpg"
//   - RemoveLocaleFromPath("/content/dam/site/en/fr_CA/a.jpg") → "/content/dam/site/a.jpg"
//   - RemoveLocaleFromPath("/content/dam/images/en") → "/content/dam/images"
//   - RemoveLocaleFromPath("/content/dam/images/") → "/content/dam/images/"
//   - RemoveLocaleFromPath("/other/en/a.jpg") → "/other/en/a.jpg"
func RemoveLocaleFromPath(path string) string {
	if !strings.HasPrefix(path, DAMRoot) {
		return path
	}

	segments := strings.Split(path[len(DAMRoot):], "/")
	kept := make([]string, 0, len(segments))
	removed := false
	for _, segment := range segments {
		if IsLocaleSegment(segment) {
			removed = true
			continue
		}
		kept = append(kept, segment)
	}
	if !removed {
		return path
	}

	result := DAMRoot + strings.Join(kept, "/")
	if IsLocaleSegment(segments[len(segments)-1]) {
		result = strings.TrimSuffix(result, "/")
	}
	return result
}

// LocaleOf returns the first locale segment found after the DAM root.
func LocaleOf(path string) (string, bool) {
	if !strings.HasPrefix(path, DAMRoot) {
		return "", false
	}
	for _, segment := range strings.Split(path[len(DAMRoot):], "/") {
		if IsLocaleSegment(segment) {
			return segment, true
		}
	}
	return "", false
}

// ReplaceLocale swaps the first locale segment after the DAM root for
// another one. The path is returned unchanged if it carries no locale.
func ReplaceLocale(path, locale string) string {
	current, ok := LocaleOf(path)
	if !ok {
		return path
	}
	segments := strings.Split(path[len(DAMRoot):], "/")
	for i, segment := range segments {
		if segment == current {
			segments[i] = locale
			break
		}
	}
	return DAMRoot + strings.Join(segments, "/")
}

// GetParentPath returns path without its last segment. It returns "" when
// there is no meaningful parent inside the DAM: for "/", "/content",
// "/content/dam", paths outside the DAM root, and empty input. Trailing
// slashes are ignored.
func GetParentPath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	switch trimmed {
	case "", "/content", "/content/dam":
		return ""
	}
	if !strings.HasPrefix(trimmed, DAMRoot) {
		return ""
	}
	return trimmed[:strings.LastIndex(trimmed, "/")]
}

// BaseName returns the last segment of path, ignoring trailing slashes.
func BaseName(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx != -1 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// HasDoubleSlashes reports whether path contains a run of two or more
// slashes outside of a leading "scheme://".
func HasDoubleSlashes(path string) bool {
	if path == "" {
		return false
	}
	_, rest := splitScheme(path)
	return strings.Contains(rest, "//")
}

// RemoveDoubleSlashes collapses every run of slashes to a single slash while
// leaving a leading "scheme://" intact.
//
// Example:
//   - RemoveDoubleSlashes("https://example.com///content//dam") → "https://example.com/content/dam"
func RemoveDoubleSlashes(path string) string {
	if path == "" {
		return path
	}
	scheme, rest := splitScheme(path)
	return scheme + slashRun.ReplaceAllString(rest, "/")
}

// Normalize produces the key form used by the path index: whitespace
// trimmed, slash runs collapsed and no trailing slash.
func Normalize(path string) string {
	normalized := RemoveDoubleSlashes(strings.TrimSpace(path))
	if len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func splitScheme(path string) (string, string) {
	if loc := schemePattern.FindStringIndex(path); loc != nil {
		return path[:loc[1]], path[loc[1]:]
	}
	return "", path
}
