// Package normalize canonicalizes place names before they are searched.
package normalize

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name turns a raw place name into its lookup form: underscores become
// spaces, the text is NFC-composed and surrounding whitespace is trimmed.
func Name(raw string) string {
	name := strings.ReplaceAll(raw, "_", " ")
	name = norm.NFC.String(name)
	return strings.TrimSpace(name)
}

// QueryValue percent-encodes a value for use inside a URL query.
// Spaces are encoded as %20 rather than '+'.
func QueryValue(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
