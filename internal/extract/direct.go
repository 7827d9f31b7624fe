package extract

import (
	"context"
	"fmt"
	"net/http"
)

const plainUserAgent = "Mozilla/5.0"

// Direct fetches the page with a plain HTTP GET and pulls the text of
// its paragraph elements. Fast and good enough for static article
// pages.
type Direct struct {
	client    *http.Client
	userAgent string
}

func NewDirect() *Direct {
	return &Direct{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: plainUserAgent,
	}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	return paragraphText(resp.Body)
}
