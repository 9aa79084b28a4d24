// Package media turns image paths from the API into absolute URLs.
package media

import "strings"

var passthroughPrefixes = []string{"http://", "https://", "//", "data:"}

// ResolveURL returns path unchanged when it is already absolute, and
// otherwise joins it onto base. Backslashes from Windows-hosted uploads are
// converted to forward slashes.
func ResolveURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	for _, p := range passthroughPrefixes {
		if strings.HasPrefix(lower, p) {
			return path
		}
	}

	path = strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}
