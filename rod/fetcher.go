// Package rod renders wiki pages in headless Chrome for sources whose
// infoboxes are built client-side.
package rod

import (
	"context"
	"net/url"
	"time"

	"github.com/fwojciec/wikifuse"
	"github.com/go-rod/rod/lib/proto"
)

var _ wikifuse.Fetcher = (*Fetcher)(nil)

// DefaultSettle is how long the DOM must stay unchanged after the load
// event before the page is captured.
const DefaultSettle = 300 * time.Millisecond

// Fetcher retrieves rendered HTML through a BrowserManager.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	browsers *BrowserManager
	limiter  wikifuse.DomainLimiter
	settle   time.Duration
	now      func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithDomainLimiter rate limits requests per domain.
func WithDomainLimiter(l wikifuse.DomainLimiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithSettle sets how long the DOM must be stable before capture.
// Zero captures immediately after the load event.
func WithSettle(d time.Duration) Option {
	return func(f *Fetcher) {
		f.settle = d
	}
}

// WithClock sets the clock used for Page.FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// NewFetcher returns a Fetcher rendering pages with browsers.
// Closing the Fetcher closes browsers.
func NewFetcher(browsers *BrowserManager, opts ...Option) *Fetcher {
	f := &Fetcher{
		browsers: browsers,
		settle:   DefaultSettle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch navigates to rawURL and returns the rendered document.
// Returns EFETCH for invalid URLs, error statuses and browser failures,
// and the context error when ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*wikifuse.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "invalid URL %q", rawURL)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, err
		}
	}

	browser := f.browsers.Browser()
	if browser == nil {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "fetch %s: browser closed", rawURL)
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "fetch %s: open page: %v", rawURL, err)
	}
	defer page.Close()
	defer f.browsers.PageDone()
	page = page.Context(ctx)

	// The first document response carries the page's HTTP status.
	status := 0
	waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	fail := func(err error) (*wikifuse.Page, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "fetch %s: %v", rawURL, err)
	}

	if err := page.Navigate(rawURL); err != nil {
		return fail(err)
	}
	waitResponse()
	if status >= 400 {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "fetch %s: status %d", rawURL, status)
	}
	if err := page.WaitLoad(); err != nil {
		return fail(err)
	}
	if f.settle > 0 {
		if err := page.WaitStable(f.settle); err != nil {
			return fail(err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return fail(err)
	}
	return &wikifuse.Page{
		URL:         rawURL,
		Content:     html,
		ContentType: "text/html; charset=utf-8",
		FetchedAt:   f.now(),
	}, nil
}

// Close shuts down the browser.
func (f *Fetcher) Close() error {
	return f.browsers.Close()
}
