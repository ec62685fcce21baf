package wikifuse

import "context"

// Fetcher retrieves page content from URLs.
// Implementations handle retries, rate limiting and user-agent rotation.
type Fetcher interface {
	// Fetch retrieves the URL and returns its content decoded to UTF-8.
	// Returns EFETCH if the page cannot be retrieved.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*Page, error)

	// Close releases resources held by the fetcher.
	Close() error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
