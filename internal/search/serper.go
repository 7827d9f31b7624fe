package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// SerperEndpoint serves Google results over the serper.dev API.
// https://serper.dev/ docs
const SerperEndpoint = "https://google.serper.dev/search"

// Serper is the secondary general web provider: one attempt, no retry.
type Serper struct {
	apiKey  string
	client  *http.Client
	logger  *log.Logger
	baseURL string
}

func NewSerper(apiKey string, logger *log.Logger) *Serper {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Serper{
		apiKey:  apiKey,
		client:  newHTTPClient(DefaultTimeout),
		logger:  logger,
		baseURL: SerperEndpoint,
	}
}

func (s *Serper) Name() string { return "serper" }

func (s *Serper) Search(ctx context.Context, query string, max int) ([]string, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serper: %w", ErrNoAPIKey)
	}
	if max <= 0 {
		max = DefaultMaxResults
	}

	payload, err := json.Marshal(map[string]any{"q": query, "num": max})
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper: http %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Link string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("serper: decode: %w", err)
	}

	var urls []string
	for i, item := range raw.Organic {
		if i >= max {
			break
		}
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	return urls, nil
}
