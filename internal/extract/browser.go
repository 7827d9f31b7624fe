package extract

import (
	"context"
	"strings"

	"github.com/chromedp/chromedp"
)

// Browser renders the page in headless Chrome before pulling paragraph
// text, so script-built pages that serve an empty HTML shell still
// yield their content. It is the most expensive strategy and runs
// last.
type Browser struct {
	userAgent string
}

func NewBrowser() *Browser {
	return &Browser{userAgent: plainUserAgent}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(b.userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return paragraphText(strings.NewReader(html))
}
