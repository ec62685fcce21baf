package wikifuse

import "context"

// Store persists normalized records and canonical entities.
type Store interface {
	// FindByEntityKey returns every normalized record stored for key,
	// most recently fetched first.
	FindByEntityKey(ctx context.Context, key EntityKey) ([]*NormalizedRecord, error)

	// SaveNormalized persists a normalized record and sets its ID.
	SaveNormalized(ctx context.Context, rec *NormalizedRecord) error

	// SaveCanonical inserts or replaces the canonical entity for its key
	// and sets its ID. The ID is stable across saves of the same key.
	SaveCanonical(ctx context.Context, entity *CanonicalEntity) error

	// FindCanonical returns the canonical entity for key.
	// Returns ENOTFOUND if it does not exist.
	FindCanonical(ctx context.Context, key EntityKey) (*CanonicalEntity, error)

	// FindCanonicals returns canonical entities matching the filter.
	FindCanonicals(ctx context.Context, filter CanonicalFilter) ([]*CanonicalEntity, error)
}
