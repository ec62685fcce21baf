package crawl

import (
	"container/heap"
	"net/url"
	"strings"
	"sync"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/bloom"
)

// Compile-time interface verification.
var _ wikifuse.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory URL frontier with priority queue and Bloom filter deduplication.
// Links of equal priority are popped in the order they were pushed.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	queue *linkHeap
	seq   uint64
}

// NewFrontier creates a new Frontier sized for n expected URLs
// with the given false positive rate for deduplication.
func NewFrontier(n uint, fpRate float64) *Frontier {
	h := &linkHeap{}
	heap.Init(h)
	return &Frontier{
		seen:  bloom.NewFilter(n, fpRate),
		queue: h,
	}
}

// Push adds a link to the frontier.
// Returns false if the URL has already been seen.
// URLs are canonicalized before deduplication, see CanonicalURL.
func (f *Frontier) Push(link wikifuse.DiscoveredLink) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	link.URL = CanonicalURL(link.URL)
	if f.seen.Visit(link.URL) {
		return false
	}

	heap.Push(f.queue, queuedLink{link: link, seq: f.seq})
	f.seq++
	return true
}

// Pop returns the next link by priority.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (wikifuse.DiscoveredLink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return wikifuse.DiscoveredLink{}, false
	}
	q, _ := heap.Pop(f.queue).(queuedLink)
	return q.link, true
}

// Len returns the number of URLs in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen returns true if the URL has been processed or queued.
func (f *Frontier) Seen(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Contains(CanonicalURL(rawURL))
}

// CanonicalURL strips the fragment and lowercases the scheme and host, so
// "https://Wiki.example.com/wiki/Luffy#Bounty" and
// "https://wiki.example.com/wiki/Luffy" are the same page.
func CanonicalURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		if i := strings.IndexByte(rawURL, '#'); i != -1 {
			return rawURL[:i]
		}
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

type queuedLink struct {
	link wikifuse.DiscoveredLink
	seq  uint64
}

// linkHeap implements heap.Interface for the priority queue.
// Higher priority links are popped first.
type linkHeap []queuedLink

func (h linkHeap) Len() int { return len(h) }

// Less returns true if i has higher priority than j (max-heap), falling
// back to push order.
func (h linkHeap) Less(i, j int) bool {
	if h[i].link.Priority != h[j].link.Priority {
		return h[i].link.Priority > h[j].link.Priority
	}
	return h[i].seq < h[j].seq
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	q, _ := x.(queuedLink)
	*h = append(*h, q)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
