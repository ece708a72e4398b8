package utils

import (
	"path"
	"regexp"
	"strings"
)

var multipleSpaces = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace (including newlines and
// tabs) into a single space and trims the result.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(multipleSpaces.ReplaceAllString(s, " "))
}

// KnownVideoExtensions contains file extensions served as video documents.
var KnownVideoExtensions = []string{
	".mp4",
	".webm",
	".m4v",
	".mov",
	".ogv",
}

// IsVideoURL reports whether the document URL points at a video file.
// Query strings and fragments are ignored.
func IsVideoURL(rawURL string) bool {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	ext := strings.ToLower(path.Ext(rawURL))
	if ext == "" {
		return false
	}
	for _, known := range KnownVideoExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
