// Package scrub cleans request-derived strings before they are stored.
// Visit records echo attacker-controlled input (URLs, user-agent strings)
// back into admin views and CSV exports, so markup is stripped at ingest
// rather than trusted downstream.
package scrub

import (
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, creating it on first use.
// Strict strips every tag; stored strings are data, never markup.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// PageURL cleans a requested URL for storage: whitespace trimmed and any
// embedded markup stripped.
func PageURL(raw string) string {
	return text(raw)
}

// UserAgent cleans a client user-agent string for storage and truncates
// it to max bytes without splitting a UTF-8 sequence.
func UserAgent(raw string, max int) string {
	return truncateBytes(text(raw), max)
}

// text strips markup and returns plain text. The sanitizer entity-escapes
// its output; stored values are data, not HTML, so escape them back
// (query strings keep their literal ampersands).
func text(raw string) string {
	return html.UnescapeString(getPolicy().Sanitize(strings.TrimSpace(raw)))
}

func truncateBytes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	// Back up to a rune boundary so the stored value stays valid UTF-8.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
