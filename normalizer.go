package wikifuse

// Normalizer converts raw records into canonical form.
type Normalizer interface {
	// Validate checks that every field type and transform referenced by
	// cfg has a registered rule. Returns ESCHEMA otherwise.
	Validate(cfg *SourceConfig) error

	// Normalize converts raw values to canonical values. Data problems never
	// fail normalization: unparsable values become absent and the original
	// string is kept in the record's provenance. Returns ESCHEMA only for
	// configuration problems.
	Normalize(raw *RawRecord, cfg *SourceConfig) (*NormalizedRecord, error)
}

// Scorer computes the quality of a normalized record.
type Scorer interface {
	// Score returns a value in [0, 1]. It is deterministic and monotonic:
	// adding a non-empty field never lowers the score.
	Score(rec *NormalizedRecord, cfg *SourceConfig) float64
}

// Fuser merges the records of one entity into a canonical entity.
type Fuser interface {
	// Fuse returns the canonical entity for key. The result does not depend
	// on the order of records. Returns EEMPTY if records is empty.
	Fuse(key EntityKey, records []*NormalizedRecord) (*CanonicalEntity, error)
}

// KeyLocker serializes work on a single entity key.
type KeyLocker interface {
	// Lock blocks until the key is free and returns the unlock function.
	Lock(key EntityKey) (unlock func())
}
