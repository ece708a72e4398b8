package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// NormalizeHexColor validates a CSS hex color ("#rgb" or "#rrggbb") and
// returns it lower-cased.
// Example: "#FFEB3B" -> "#ffeb3b"
func NormalizeHexColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if !hexColorPattern.MatchString(color) {
		return "", fmt.Errorf("invalid color %q: expected #rgb or #rrggbb", color)
	}
	return strings.ToLower(color), nil
}

// IsHexColor reports whether color is a valid "#rgb" or "#rrggbb" value.
func IsHexColor(color string) bool {
	_, err := NormalizeHexColor(color)
	return err == nil
}
