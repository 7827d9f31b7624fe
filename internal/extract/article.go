package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// Article downloads the page and runs readability's
// boilerplate-removal heuristics over it, returning the main body
// text. Catches article pages whose prose is not in paragraph
// elements.
type Article struct {
	client    *http.Client
	userAgent string
}

func NewArticle() *Article {
	return &Article{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: plainUserAgent,
	}
}

func (a *Article) Name() string { return "article" }

func (a *Article) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, mustParseURL(rawURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(article.TextContent), nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
