package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mohammad-safakhou/scribe/internal/ratelimit"
)

// BraveEndpoint is the Brave web search API.
// https://api.search.brave.com/app/documentation/web-search
const BraveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave keyword search API. The service allows one
// request per second on the free tier, so every call goes through the
// shared rate limiter first.
type Brave struct {
	apiKey  string
	limiter *ratelimit.Limiter
	client  *http.Client
	logger  *log.Logger
	baseURL string
}

func NewBrave(apiKey string, limiter *ratelimit.Limiter, logger *log.Logger) *Brave {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Brave{
		apiKey:  apiKey,
		limiter: limiter,
		client:  newHTTPClient(DefaultTimeout),
		logger:  logger,
		baseURL: BraveEndpoint,
	}
}

func (b *Brave) Name() string { return "brave" }

func (b *Brave) Search(ctx context.Context, query string, max int) ([]string, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("brave: %w", ErrNoAPIKey)
	}
	if max <= 0 {
		max = 5
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx, b.Name()); err != nil {
			return nil, fmt.Errorf("brave: %w", err)
		}
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(max))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave: http %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				URL string `json:"url"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("brave: decode: %w", err)
	}
	if len(raw.Web.Results) == 0 {
		b.logger.Printf("brave: no web.results in response for %q", query)
		return nil, nil
	}

	urls := make([]string, 0, len(raw.Web.Results))
	for _, r := range raw.Web.Results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls, nil
}
