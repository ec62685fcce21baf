// Package http provides the HTTP implementation of wikifuse.Fetcher and the
// sitemap-based URL discovery used when a source has no listing pages.
package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/wikifuse"
	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultFetchTimeout is the default timeout for a single HTTP attempt.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultRetryMax is the number of retries after the first attempt.
	DefaultRetryMax = 3

	// DefaultMaxBodySize bounds the size of a fetched page.
	DefaultMaxBodySize = 10 << 20
)

// DefaultUserAgents are rotated round-robin across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// Ensure Fetcher implements wikifuse.Fetcher at compile time.
var _ wikifuse.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages over HTTP. Transient failures (connection errors,
// 429 and 5xx responses) are retried with exponential backoff. Requests are
// rate limited per host when a limiter is configured, and bodies are decoded
// to UTF-8 before they are returned.
type Fetcher struct {
	client      *retryablehttp.Client
	timeout     time.Duration
	retryMax    int
	waitMin     time.Duration
	waitMax     time.Duration
	userAgents  []string
	next        atomic.Uint64
	limiter     wikifuse.DomainLimiter
	logger      *slog.Logger
	maxBodySize int64
	now         func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for each HTTP attempt.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithRetryMax sets the number of retries. Zero disables retrying.
func WithRetryMax(n int) Option {
	return func(f *Fetcher) {
		f.retryMax = n
	}
}

// WithRetryWait sets the backoff bounds between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(f *Fetcher) {
		f.waitMin = minWait
		f.waitMax = maxWait
	}
}

// WithUserAgents sets the user agents rotated across requests.
func WithUserAgents(agents ...string) Option {
	return func(f *Fetcher) {
		f.userAgents = agents
	}
}

// WithDomainLimiter rate limits requests per host.
func WithDomainLimiter(l wikifuse.DomainLimiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithLogger logs retries at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithMaxBodySize sets the largest accepted page, in bytes.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithClock sets the clock used for fetch timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// NewFetcher creates a new HTTP Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultFetchTimeout,
		retryMax:    DefaultRetryMax,
		waitMin:     500 * time.Millisecond,
		waitMax:     10 * time.Second,
		userAgents:  DefaultUserAgents,
		maxBodySize: DefaultMaxBodySize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = f.timeout
	client.RetryMax = f.retryMax
	client.RetryWaitMin = f.waitMin
	client.RetryWaitMax = f.waitMax
	client.Logger = nil
	if f.logger != nil {
		client.Logger = retryLogger{f.logger}
	}
	f.client = client

	return f
}

// Client returns a standard HTTP client that shares the fetcher's retry
// policy, for collaborators such as the sitemap service.
func (f *Fetcher) Client() *http.Client {
	return f.client.StandardClient()
}

// Fetch retrieves the page at rawURL. Returns EFETCH if the page cannot be
// retrieved, is not text, or is larger than the configured limit.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*wikifuse.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "invalid URL %q", rawURL)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, wikifuse.Errorf(wikifuse.EFETCH, "fetching %s: %v", rawURL, err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "creating request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "fetching %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "reading %s: %v", rawURL, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "%s exceeds %d bytes", rawURL, f.maxBodySize)
	}

	contentType := resp.Header.Get("Content-Type")
	detected := mimetype.Detect(body)
	if !isText(detected) {
		return nil, wikifuse.Errorf(wikifuse.EFETCH, "unsupported content type %s for %s", detected.String(), rawURL)
	}
	if contentType == "" {
		contentType = detected.String()
	}

	return &wikifuse.Page{
		URL:         rawURL,
		Content:     decode(body, contentType),
		ContentType: contentType,
		FetchedAt:   f.now().UTC(),
	}, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.HTTPClient.CloseIdleConnections()
	return nil
}

func (f *Fetcher) userAgent() string {
	if len(f.userAgents) == 0 {
		return ""
	}
	n := f.next.Add(1) - 1
	return f.userAgents[n%uint64(len(f.userAgents))]
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("text/html") {
			return true
		}
	}
	return false
}

// decode converts body to UTF-8. A charset declared by the response or a
// byte order mark wins; valid UTF-8 is kept as is; otherwise the charset is
// detected from the content.
func decode(body []byte, contentType string) string {
	_, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain {
		if utf8.Valid(body) {
			return string(body)
		}
		if res, err := chardet.NewHtmlDetector().DetectBest(body); err == nil {
			name = strings.ToLower(res.Charset)
		}
	}

	r, err := charset.NewReaderLabel(name, bytes.NewReader(body))
	if err != nil {
		return strings.ToValidUTF8(string(body), "�")
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return strings.ToValidUTF8(string(body), "�")
	}
	return string(decoded)
}

// retryLogger adapts slog to retryablehttp's leveled logger. Request-level
// messages are demoted to debug so a run log shows one line per page.
type retryLogger struct {
	logger *slog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}
