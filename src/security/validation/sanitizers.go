// src/security/validation/sanitizers.go
package validation

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Card fields are rendered by the dashboard, so no markup survives.
var cardFieldPolicy = bluemonday.StrictPolicy()

// SanitizeText drops every HTML tag and attribute from s.
func SanitizeText(s string) string {
	return cardFieldPolicy.Sanitize(s)
}

// StripUnprintable drops control and other non-printable runes. Tabs and
// newlines become spaces since card fields are single-line.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsPrint(r):
			return r
		default:
			return -1
		}
	}, s)
}

// CleanField strips markup and unprintable runes and trims surrounding space.
func CleanField(s string) string {
	return strings.TrimSpace(StripUnprintable(SanitizeText(s)))
}
