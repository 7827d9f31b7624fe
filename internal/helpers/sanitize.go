package helpers

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// PlainTextPolicy returns a singleton bluemonday policy that strips
// every HTML element and attribute.
func PlainTextPolicy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// StripMarkup reduces a text fragment to plain text: HTML markup is
// removed, entities decoded, surrounding whitespace trimmed. Model
// output and scraped text are untrusted, so report text passes through
// this before being served to clients.
func StripMarkup(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(PlainTextPolicy().Sanitize(s)))
}
