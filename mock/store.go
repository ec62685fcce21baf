package mock

import (
	"context"

	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.Store = (*Store)(nil)

// Store is a mock implementation of wikifuse.Store.
type Store struct {
	FindByEntityKeyFn func(ctx context.Context, key wikifuse.EntityKey) ([]*wikifuse.NormalizedRecord, error)
	SaveNormalizedFn  func(ctx context.Context, rec *wikifuse.NormalizedRecord) error
	SaveCanonicalFn   func(ctx context.Context, entity *wikifuse.CanonicalEntity) error
	FindCanonicalFn   func(ctx context.Context, key wikifuse.EntityKey) (*wikifuse.CanonicalEntity, error)
	FindCanonicalsFn  func(ctx context.Context, filter wikifuse.CanonicalFilter) ([]*wikifuse.CanonicalEntity, error)
}

func (s *Store) FindByEntityKey(ctx context.Context, key wikifuse.EntityKey) ([]*wikifuse.NormalizedRecord, error) {
	return s.FindByEntityKeyFn(ctx, key)
}

func (s *Store) SaveNormalized(ctx context.Context, rec *wikifuse.NormalizedRecord) error {
	return s.SaveNormalizedFn(ctx, rec)
}

func (s *Store) SaveCanonical(ctx context.Context, entity *wikifuse.CanonicalEntity) error {
	return s.SaveCanonicalFn(ctx, entity)
}

func (s *Store) FindCanonical(ctx context.Context, key wikifuse.EntityKey) (*wikifuse.CanonicalEntity, error) {
	return s.FindCanonicalFn(ctx, key)
}

func (s *Store) FindCanonicals(ctx context.Context, filter wikifuse.CanonicalFilter) ([]*wikifuse.CanonicalEntity, error) {
	return s.FindCanonicalsFn(ctx, filter)
}
