package formparser

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders a form page in headless Chrome and returns its HTML.
// Google Forms builds the question markup with JavaScript, so a plain GET is
// not enough.
type ChromeFetcher struct {
	Timeout time.Duration
}

// NewChromeFetcher creates a fetcher with the given per-page timeout.
func NewChromeFetcher(timeout time.Duration) *ChromeFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeFetcher{Timeout: timeout}
}

// Fetch navigates to the form URL and returns the rendered document.
func (f *ChromeFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.New("invalid url")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.New("invalid url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("FormPilot/1.0 (+contact@example.com)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err = chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
