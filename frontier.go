package wikifuse

// LinkPriority represents crawl priority (higher = more important).
type LinkPriority int

// Link priority levels for discovery ordering. Pagination links are visited
// before entity links so listing pages are exhausted early.
const (
	PriorityIgnore     LinkPriority = 0
	PriorityEntity     LinkPriority = 50
	PriorityPagination LinkPriority = 100
)

// DiscoveredLink represents a URL with priority metadata.
type DiscoveredLink struct {
	URL      string
	Priority LinkPriority
	Text     string
	Source   string // "entity" or "pagination"
}

// URLFrontier manages a discovery queue with deduplication.
type URLFrontier interface {
	// Push adds a link to the frontier.
	// Returns false if the URL has already been seen.
	Push(link DiscoveredLink) bool

	// Pop returns the next URL by priority.
	// Returns false if the frontier is empty.
	Pop() (DiscoveredLink, bool)

	// Len returns the number of URLs in the queue.
	Len() int

	// Seen returns true if the URL has been processed or queued.
	Seen(url string) bool
}
