package core

import (
	"regexp"
	"strings"
)

var (
	slugInvalidRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashRegex    = regexp.MustCompile(`-{2,}`)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify lowers `s` and keeps only [a-z0-9-]; whitespace and underscores become dashes.
func Slugify(s string) string {
	s = CleanString(s, true /* lower */)
	s = strings.NewReplacer(" ", "-", "_", "-", "\t", "-").Replace(s)
	s = slugInvalidRegex.ReplaceAllString(s, "")
	s = slugDashRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
