// Package extract turns candidate URLs into readable document text
// through an ordered chain of extraction strategies.
package extract

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/scribe/internal/helpers"
)

// DefaultTimeout bounds each individual strategy attempt.
const DefaultTimeout = 10 * time.Second

// Strategy is one way of obtaining a document's readable text. An
// empty string with a nil error means the strategy ran but found
// nothing usable; both outcomes make the extractor fall through to the
// next strategy.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Cache stores extracted text keyed by URL. Implementations absorb
// their own failures: a broken cache behaves like an always-missing
// one.
type Cache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, text string)
}

// Extractor tries its strategies in order and returns the first
// non-empty text. It never fails: every strategy error is logged and
// absorbed, and a URL nothing could extract yields an empty string.
type Extractor struct {
	Strategies []Strategy
	Cache      Cache
	Timeout    time.Duration

	logger *log.Logger
}

// NewExtractor wires the default strategy order: plain HTTP paragraph
// pull, then readability article extraction, then a rendered-page pull
// through headless Chrome.
func NewExtractor(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)
	}
	return &Extractor{
		Strategies: []Strategy{NewDirect(), NewArticle(), NewBrowser()},
		Timeout:    DefaultTimeout,
		logger:     logger,
	}
}

// Extract returns readable text for url, or an empty string when the
// URL is a malformed arXiv reference or every strategy came up empty.
func (e *Extractor) Extract(ctx context.Context, url string) string {
	if helpers.MalformedArxivAbs(url) {
		e.logger.Printf("skipping malformed arxiv url %s", url)
		return ""
	}

	if e.Cache != nil {
		if text, ok := e.Cache.Get(ctx, url); ok {
			cacheHits.Inc()
			return text
		}
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	for _, s := range e.Strategies {
		extractAttempts.WithLabelValues(s.Name()).Inc()

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := s.Fetch(attemptCtx, url)
		cancel()

		if err != nil {
			extractFailures.WithLabelValues(s.Name()).Inc()
			e.logger.Printf("strategy %s failed for %s: %v", s.Name(), url, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if e.Cache != nil {
			e.Cache.Set(ctx, url, text)
		}
		return text
	}
	return ""
}
