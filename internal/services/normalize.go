package services

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the canonical form under which URLs are stored and
// searched: percent-decoded, lowercased and trimmed. An undecodable input is
// kept as is.
func NormalizeURL(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return strings.TrimSpace(strings.ToLower(decoded))
}
