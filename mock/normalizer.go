package mock

import "github.com/fwojciec/wikifuse"

var _ wikifuse.Normalizer = (*Normalizer)(nil)

// Normalizer is a mock implementation of wikifuse.Normalizer.
type Normalizer struct {
	ValidateFn  func(cfg *wikifuse.SourceConfig) error
	NormalizeFn func(raw *wikifuse.RawRecord, cfg *wikifuse.SourceConfig) (*wikifuse.NormalizedRecord, error)
}

func (n *Normalizer) Validate(cfg *wikifuse.SourceConfig) error {
	return n.ValidateFn(cfg)
}

func (n *Normalizer) Normalize(raw *wikifuse.RawRecord, cfg *wikifuse.SourceConfig) (*wikifuse.NormalizedRecord, error) {
	return n.NormalizeFn(raw, cfg)
}

var _ wikifuse.Scorer = (*Scorer)(nil)

// Scorer is a mock implementation of wikifuse.Scorer.
type Scorer struct {
	ScoreFn func(rec *wikifuse.NormalizedRecord, cfg *wikifuse.SourceConfig) float64
}

func (s *Scorer) Score(rec *wikifuse.NormalizedRecord, cfg *wikifuse.SourceConfig) float64 {
	return s.ScoreFn(rec, cfg)
}

var _ wikifuse.Fuser = (*Fuser)(nil)

// Fuser is a mock implementation of wikifuse.Fuser.
type Fuser struct {
	FuseFn func(key wikifuse.EntityKey, records []*wikifuse.NormalizedRecord) (*wikifuse.CanonicalEntity, error)
}

func (f *Fuser) Fuse(key wikifuse.EntityKey, records []*wikifuse.NormalizedRecord) (*wikifuse.CanonicalEntity, error) {
	return f.FuseFn(key, records)
}
