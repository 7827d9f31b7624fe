package helpers

import (
	"regexp"
	"strings"
)

// arxivAbsPattern matches a well-formed arXiv abstract page URL:
// four-digit year/month, a dot, a five-digit number, and an optional
// version suffix. Anything else claiming to be an abs page is treated
// as malformed.
var arxivAbsPattern = regexp.MustCompile(`^https?://arxiv\.org/abs/\d{4}\.\d{5}(v\d+)?$`)

// ValidArxivAbs reports whether raw is a well-formed arXiv abstract URL.
func ValidArxivAbs(raw string) bool {
	return arxivAbsPattern.MatchString(strings.TrimSpace(raw))
}

// MalformedArxivAbs reports whether raw claims to reference an arXiv
// abstract page but fails strict validation. Such URLs are dropped by
// the search chain and rejected up front by the extractor.
func MalformedArxivAbs(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.Contains(raw, "arxiv.org/abs/") && !arxivAbsPattern.MatchString(raw)
}
