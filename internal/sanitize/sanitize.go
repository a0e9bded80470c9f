// Package sanitize derives file-safe identifiers and validates untrusted input.
package sanitize

import (
	"strings"
)

const (
	// MaxSlugLength bounds pack IDs and note file name slugs.
	MaxSlugLength = 50
)

// Slug lower-cases s and collapses every run of characters outside [a-z0-9]
// into a single hyphen. The result is trimmed of hyphens and truncated to
// MaxSlugLength. fallback is used when nothing remains.
//
// Examples:
//
//	"My Go Pack!"    -> "my-go-pack"
//	"API: v2 design" -> "api-v2-design"
//	"!!!"            -> fallback
func Slug(s, fallback string) string {
	var b strings.Builder
	b.Grow(len(s))
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen {
			b.WriteByte('-')
			hyphen = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	if slug == "" {
		return fallback
	}
	return slug
}
