package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/scribe/internal/helpers"
)

// ArxivEndpoint is the arXiv Atom query API.
const ArxivEndpoint = "http://export.arxiv.org/api/query"

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// Arxiv searches arXiv pre-prints by keyword. Results are accepted
// only when the abstract URL is well formed and the paper title shares
// at least one normalized token with the query, which keeps loosely
// indexed entries out of the candidate set.
type Arxiv struct {
	client  *http.Client
	logger  *log.Logger
	baseURL string
}

func NewArxiv(logger *log.Logger) *Arxiv {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Arxiv{
		client:  newHTTPClient(DefaultTimeout),
		logger:  logger,
		baseURL: ArxivEndpoint,
	}
}

func (a *Arxiv) Name() string { return "arxiv" }

func (a *Arxiv) Search(ctx context.Context, query string, max int) ([]string, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}

	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(max))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: http %d", resp.StatusCode)
	}

	var feed struct {
		Entries []struct {
			ID    string `xml:"id"`
			Title string `xml:"title"`
		} `xml:"entry"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv: decode: %w", err)
	}

	queryTokens := tokenSet(query)
	var links []string
	for _, entry := range feed.Entries {
		if entry.ID == "" || entry.Title == "" {
			continue
		}
		// Some feed ids point at the API mirror of the abstract page.
		raw := strings.Replace(entry.ID, "/api/", "/abs/", 1)
		if !helpers.ValidArxivAbs(raw) {
			continue
		}
		if !intersects(queryTokens, tokenSet(entry.Title)) {
			continue
		}
		links = append(links, strings.TrimSpace(raw))
	}
	return links, nil
}

// tokenSet lowercases s, strips everything but letters, digits and
// spaces, and returns the remaining whitespace-delimited tokens.
func tokenSet(s string) map[string]struct{} {
	cleaned := strings.ToLower(nonAlnum.ReplaceAllString(s, ""))
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(cleaned) {
		set[tok] = struct{}{}
	}
	return set
}

func intersects(a, b map[string]struct{}) bool {
	for tok := range a {
		if _, ok := b[tok]; ok {
			return true
		}
	}
	return false
}
