package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
)

// ScholarEndpoint is the Semantic Scholar paper search API.
const ScholarEndpoint = "https://api.semanticscholar.org/graph/v1/paper/search"

// Scholar searches the Semantic Scholar citation graph. Entries
// without a URL are skipped.
type Scholar struct {
	client  *http.Client
	logger  *log.Logger
	baseURL string
}

func NewScholar(logger *log.Logger) *Scholar {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Scholar{
		client:  newHTTPClient(DefaultTimeout),
		logger:  logger,
		baseURL: ScholarEndpoint,
	}
}

func (s *Scholar) Name() string { return "semantic-scholar" }

func (s *Scholar) Search(ctx context.Context, query string, max int) ([]string, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(max))
	q.Set("fields", "title,url")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar: http %d", resp.StatusCode)
	}

	var raw struct {
		Data []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("semantic scholar: decode: %w", err)
	}

	var urls []string
	for _, paper := range raw.Data {
		if paper.URL != "" {
			urls = append(urls, paper.URL)
		}
	}
	return urls, nil
}
