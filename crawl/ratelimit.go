package crawl

import (
	"context"
	"strings"
	"sync"

	"github.com/fwojciec/wikifuse"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

var _ wikifuse.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter rate limits requests with one token bucket per host.
// A run spanning several wikis only throttles requests that hit the same
// host unless the limiter groups hosts by registrable domain.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	group    bool
}

// LimiterOption configures a DomainLimiter.
type LimiterOption func(*DomainLimiter)

// WithBurst allows n requests in a row before throttling starts.
func WithBurst(n int) LimiterOption {
	return func(d *DomainLimiter) {
		if n > 0 {
			d.burst = n
		}
	}
}

// ByRegistrableDomain shares one bucket among the hosts of a registrable
// domain, so onepiece.fandom.com and naruto.fandom.com are limited
// together.
func ByRegistrableDomain() LimiterOption {
	return func(d *DomainLimiter) {
		d.group = true
	}
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per
// second to each domain. A non-positive rps disables limiting.
func NewDomainLimiter(rps float64, opts ...LimiterOption) *DomainLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	d := &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Wait blocks until the rate limit allows a request to the domain.
// Domains are compared case-insensitively.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	key := d.key(domain)

	d.mu.Lock()
	limiter, ok := d.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(d.limit, d.burst)
		d.limiters[key] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

func (d *DomainLimiter) key(domain string) string {
	domain = strings.ToLower(domain)
	if !d.group {
		return domain
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		return etld1
	}
	return domain
}
