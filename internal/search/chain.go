package search

import (
	"context"
	"log"
	"time"

	"github.com/mohammad-safakhou/scribe/internal/helpers"
	"github.com/mohammad-safakhou/scribe/internal/ratelimit"
)

// PostSuccessPause is the courtesy pause after a provider delivers a
// usable batch, before the chain hands the URLs to the caller.
const PostSuccessPause = 5 * time.Second

// Chain tries providers in a fixed priority order and short-circuits
// on the first one that yields a non-empty batch after filtering.
// Provider failures are absorbed here: they are logged, counted and
// treated as empty batches, so Resolve never fails. An all-empty
// outcome is valid and yields an empty slice.
type Chain struct {
	providers []Provider
	logger    *log.Logger
	pause     time.Duration
	sleep     func(context.Context, time.Duration) error
}

func NewChain(providers []Provider, logger *log.Logger) *Chain {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Chain{
		providers: providers,
		logger:    logger,
		pause:     PostSuccessPause,
		sleep:     ratelimit.Sleep,
	}
}

// Options carries the credentials and limits needed to assemble the
// default provider chain.
type Options struct {
	BraveAPIKey  string
	SerperAPIKey string
}

// NewDefaultChain wires the five providers in their priority order:
// Brave, arXiv, Semantic Scholar, DuckDuckGo, Serper.
func NewDefaultChain(opts Options, logger *log.Logger) *Chain {
	limiter := ratelimit.New(time.Second)
	providers := []Provider{
		NewBrave(opts.BraveAPIKey, limiter, logger),
		NewArxiv(logger),
		NewScholar(logger),
		NewDuckDuckGo(logger),
		NewSerper(opts.SerperAPIKey, logger),
	}
	return NewChain(providers, logger)
}

// Resolve returns candidate URLs for query from the first provider
// that produces any. Malformed arXiv abstract references are dropped
// from a batch without discarding the rest of it.
func (c *Chain) Resolve(ctx context.Context, query string, max int) []string {
	for _, p := range c.providers {
		searchAttempts.WithLabelValues(p.Name()).Inc()
		urls, err := p.Search(ctx, query, max)
		if err != nil {
			searchFailures.WithLabelValues(p.Name()).Inc()
			c.logger.Printf("provider %s failed for %q: %v", p.Name(), query, err)
			continue
		}

		accepted := urls[:0:0]
		for _, u := range urls {
			if helpers.MalformedArxivAbs(u) {
				c.logger.Printf("dropping malformed arxiv url %s", u)
				continue
			}
			accepted = append(accepted, u)
		}
		if len(accepted) == 0 {
			continue
		}

		// Courtesy pause after a successful provider. Cancellation
		// while pausing still returns the batch we already have.
		_ = c.sleep(ctx, c.pause)
		return accepted
	}
	return nil
}
