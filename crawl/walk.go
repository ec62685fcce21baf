package crawl

import (
	"context"
	"sync"

	"github.com/fwojciec/wikifuse"
)

// Frontier sizing for listing walks.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate for deduplication.
	frontierFalsePositiveRate = 0.01
)

// listingResult holds the outcome of fetching one listing page.
type listingResult struct {
	seq   int
	url   string
	links []wikifuse.DiscoveredLink
	err   error
}

type walkItem struct {
	seq  int
	link wikifuse.DiscoveredLink
}

// walkProcessor fetches a listing page and extracts its links.
type walkProcessor func(ctx context.Context, seq int, link wikifuse.DiscoveredLink) listingResult

// walkResultHandler consumes a result. It runs on the coordinator
// goroutine, so it may push to the frontier without further locking.
type walkResultHandler func(result *listingResult, frontier *Frontier)

// walkFrontier processes links popped from frontier on a pool of
// concurrency workers until the frontier is drained, maxPages pages have
// been dispatched, or ctx is done. Handlers may push further links.
func walkFrontier(
	ctx context.Context,
	frontier *Frontier,
	concurrency int,
	maxPages int,
	process walkProcessor,
	handle walkResultHandler,
) {
	if concurrency <= 0 {
		concurrency = 1
	}

	workCh := make(chan walkItem)
	resultCh := make(chan listingResult)

	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				resultCh <- process(ctx, w.seq, w.link)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	dispatched := 0
	pending := 0
	var next *wikifuse.DiscoveredLink
	pop := func() {
		if next == nil && (maxPages <= 0 || dispatched < maxPages) {
			if link, ok := frontier.Pop(); ok {
				next = &link
			}
		}
	}
	pop()

	for (next != nil || pending > 0) && ctx.Err() == nil {
		if next != nil {
			select {
			case <-ctx.Done():
			case workCh <- walkItem{seq: dispatched, link: *next}:
				dispatched++
				pending++
				next = nil
			case res := <-resultCh:
				pending--
				handle(&res, frontier)
			}
		} else {
			select {
			case <-ctx.Done():
			case res := <-resultCh:
				pending--
				handle(&res, frontier)
			}
		}
		pop()
	}

	// Workers finish their current page; results are drained so no worker
	// blocks on send.
	close(workCh)
	for res := range resultCh {
		if ctx.Err() == nil {
			handle(&res, frontier)
		}
	}
}
