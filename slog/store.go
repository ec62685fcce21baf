package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikifuse"
)

// Ensure LoggingStore implements wikifuse.Store.
var _ wikifuse.Store = (*LoggingStore)(nil)

// LoggingStore wraps a Store with debug logging of every operation.
type LoggingStore struct {
	next   wikifuse.Store
	logger *slog.Logger
}

// NewLoggingStore creates a new LoggingStore.
func NewLoggingStore(next wikifuse.Store, logger *slog.Logger) *LoggingStore {
	return &LoggingStore{next: next, logger: logger}
}

// FindByEntityKey delegates to the wrapped store.
func (s *LoggingStore) FindByEntityKey(ctx context.Context, key wikifuse.EntityKey) (records []*wikifuse.NormalizedRecord, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find records",
			"entity_key", key,
			"count", len(records),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindByEntityKey(ctx, key)
}

// SaveNormalized delegates to the wrapped store.
func (s *LoggingStore) SaveNormalized(ctx context.Context, rec *wikifuse.NormalizedRecord) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("save record",
			"entity_key", rec.EntityKey,
			"url", rec.SourceURL,
			"id", rec.ID,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SaveNormalized(ctx, rec)
}

// SaveCanonical delegates to the wrapped store.
func (s *LoggingStore) SaveCanonical(ctx context.Context, entity *wikifuse.CanonicalEntity) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("save entity",
			"entity_key", entity.Key,
			"id", entity.ID,
			"sources", len(entity.ContributingSources),
			"conflicts", len(entity.MergeConflicts),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SaveCanonical(ctx, entity)
}

// FindCanonical delegates to the wrapped store.
func (s *LoggingStore) FindCanonical(ctx context.Context, key wikifuse.EntityKey) (entity *wikifuse.CanonicalEntity, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find entity",
			"entity_key", key,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindCanonical(ctx, key)
}

// FindCanonicals delegates to the wrapped store.
func (s *LoggingStore) FindCanonicals(ctx context.Context, filter wikifuse.CanonicalFilter) (entities []*wikifuse.CanonicalEntity, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find entities",
			"count", len(entities),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindCanonicals(ctx, filter)
}
