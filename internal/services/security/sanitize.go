package security

import "strings"

var htmlReplacer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes the HTML-significant characters < > " ' and / in a single
// left-to-right pass. Produced references are never re-scanned, and & is left alone.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}
	return htmlReplacer.Replace(input)
}
