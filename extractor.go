package wikifuse

// RecordExtractor applies a source configuration to a fetched page.
type RecordExtractor interface {
	// ExtractRecord applies every rule of cfg to the page.
	// Returns EPARSE if the page cannot be parsed and EINVALID if a
	// required field is absent.
	ExtractRecord(page *Page, cfg *SourceConfig) (*RawRecord, error)
}

// LinkExtractor finds entity links and pagination links on listing pages.
type LinkExtractor interface {
	ExtractLinks(page *Page, cfg *SourceConfig) ([]DiscoveredLink, error)
}
