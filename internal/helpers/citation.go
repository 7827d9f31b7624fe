package helpers

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceDomain returns the lowercased host of a source URL, without
// default ports. Unparseable URLs yield an empty string.
func SourceDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	return host
}

// FormatSource renders one numbered source reference:
// [n] domain <URL>
func FormatSource(n int, raw string) string {
	raw = strings.TrimSpace(raw)
	if domain := SourceDomain(raw); domain != "" {
		return fmt.Sprintf("[%d] %s <%s>", n, domain, raw)
	}
	return fmt.Sprintf("[%d] <%s>", n, raw)
}

// FormatSources renders a source list in order, numbered from 1.
func FormatSources(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, 0, len(urls))
	for i, u := range urls {
		out = append(out, FormatSource(i+1, u))
	}
	return out
}
