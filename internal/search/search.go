// Package search resolves research queries into candidate source URLs
// through a prioritized chain of external search providers.
package search

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultTimeout bounds every provider HTTP request.
const DefaultTimeout = 10 * time.Second

// DefaultMaxResults is used when a caller passes a non-positive limit.
const DefaultMaxResults = 3

// ErrNoAPIKey marks a provider whose credential is not configured.
// Such a provider degrades to always-failing instead of crashing the
// chain.
var ErrNoAPIKey = errors.New("api key not configured")

// Provider is one external search service. Search returns candidate
// URLs in service order. Implementations return errors instead of
// swallowing them; the Chain is the boundary that absorbs failures.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]string, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
