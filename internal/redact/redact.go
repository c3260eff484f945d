// Package redact strips credential-like fragments from text before it
// reaches logs or the ledger status cell.
package redact

import (
	"regexp"
	"strings"
)

var (
	urlCredentials = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.\-]*://)([^@\s/]+)@`)
	passwordPair   = regexp.MustCompile(`(?i)\b(password|passwd|pwd)\b\s*[:=]\s*\S+`)
)

// Secrets masks credentials embedded in URLs (user:pass@host) and
// password-style key=value pairs.
func Secrets(text string) string {
	if text == "" {
		return text
	}

	redacted := urlCredentials.ReplaceAllStringFunc(text, func(match string) string {
		groups := urlCredentials.FindStringSubmatch(match)
		scheme, credentials := groups[1], groups[2]
		if user, _, ok := strings.Cut(credentials, ":"); ok {
			return scheme + user + ":***@"
		}
		return scheme + "***@"
	})

	return passwordPair.ReplaceAllStringFunc(redacted, func(match string) string {
		groups := passwordPair.FindStringSubmatch(match)
		return groups[1] + "=***"
	})
}
