package search

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mohammad-safakhou/scribe/internal/helpers"
	"github.com/mohammad-safakhou/scribe/internal/ratelimit"
)

// DuckDuckGoEndpoint is the lite HTML interface, which is the most
// stable surface for scraping.
const DuckDuckGoEndpoint = "https://lite.duckduckgo.com/lite/"

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	ddgResultLink  = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"]`)
	ddgResultLink2 = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"]`)
	ddgAnyLink     = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"]`)
)

// DuckDuckGo scrapes the DuckDuckGo lite page. The scrape is fragile
// and the service aggressively throttles bots, so every attempt is
// preceded by a randomized politeness delay and the whole call retries
// a few times before giving up.
type DuckDuckGo struct {
	client   *http.Client
	logger   *log.Logger
	baseURL  string
	attempts int
	delayMin time.Duration
	delayMax time.Duration
	sleep    func(context.Context, time.Duration) error
	randF    func() float64
}

func NewDuckDuckGo(logger *log.Logger) *DuckDuckGo {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &DuckDuckGo{
		client:   newHTTPClient(DefaultTimeout),
		logger:   logger,
		baseURL:  DuckDuckGoEndpoint,
		attempts: 3,
		delayMin: 7 * time.Second,
		delayMax: 15 * time.Second,
		sleep:    ratelimit.Sleep,
		randF:    rand.Float64,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]string, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}

	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		// The delay runs before every attempt, the first included. It
		// is etiquette toward the service, not backoff on failure.
		if err := d.sleep(ctx, d.politenessDelay()); err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}
		urls, err := d.fetchResults(ctx, query, max)
		if err == nil {
			return urls, nil
		}
		lastErr = err
		d.logger.Printf("duckduckgo attempt %d/%d failed: %v", attempt, d.attempts, err)
	}
	return nil, fmt.Errorf("duckduckgo: %w", lastErr)
}

func (d *DuckDuckGo) politenessDelay() time.Duration {
	if d.delayMax <= d.delayMin {
		return d.delayMin
	}
	return d.delayMin + time.Duration(d.randF()*float64(d.delayMax-d.delayMin))
}

func (d *DuckDuckGo) fetchResults(ctx context.Context, query string, max int) ([]string, error) {
	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := helpers.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return parseLiteResults(string(body), max), nil
}

// parseLiteResults pulls result links out of the lite HTML page.
// Redirect-wrapped links are unwrapped to their target URL.
func parseLiteResults(page string, max int) []string {
	matches := ddgResultLink.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = ddgResultLink2.FindAllStringSubmatch(page, -1)
	}
	if len(matches) == 0 {
		// Fall back to any external-looking link on the page.
		for _, m := range ddgAnyLink.FindAllStringSubmatch(page, -1) {
			if href := normalizeDDGLink(m[1]); href != "" {
				matches = append(matches, []string{m[0], m[1]})
			}
		}
	}

	var urls []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		href := normalizeDDGLink(m[1])
		if href == "" {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}
		urls = append(urls, href)
		if len(urls) >= max {
			break
		}
	}
	return urls
}

// normalizeDDGLink unwraps DuckDuckGo redirect URLs and drops internal
// navigation links.
func normalizeDDGLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "//duckduckgo.com/l/") || strings.Contains(href, "duckduckgo.com/l/") {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				if decoded, err := url.QueryUnescape(target); err == nil {
					return decoded
				}
			}
		}
		return ""
	}
	if strings.HasPrefix(href, "/") || strings.Contains(href, "duckduckgo.com") {
		return ""
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	return href
}
