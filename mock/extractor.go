package mock

import "github.com/fwojciec/wikifuse"

var _ wikifuse.RecordExtractor = (*RecordExtractor)(nil)

// RecordExtractor is a mock implementation of wikifuse.RecordExtractor.
type RecordExtractor struct {
	ExtractRecordFn func(page *wikifuse.Page, cfg *wikifuse.SourceConfig) (*wikifuse.RawRecord, error)
}

func (e *RecordExtractor) ExtractRecord(page *wikifuse.Page, cfg *wikifuse.SourceConfig) (*wikifuse.RawRecord, error) {
	return e.ExtractRecordFn(page, cfg)
}

var _ wikifuse.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of wikifuse.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(page *wikifuse.Page, cfg *wikifuse.SourceConfig) ([]wikifuse.DiscoveredLink, error)
}

func (e *LinkExtractor) ExtractLinks(page *wikifuse.Page, cfg *wikifuse.SourceConfig) ([]wikifuse.DiscoveredLink, error) {
	return e.ExtractLinksFn(page, cfg)
}
