package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fwojciec/wikifuse"
	"github.com/google/uuid"
)

// SaveCanonical inserts or replaces the canonical entity for its key.
// The entity keeps the ID assigned on first save.
func (s *Store) SaveCanonical(ctx context.Context, entity *wikifuse.CanonicalEntity) error {
	if err := entity.Validate(); err != nil {
		return err
	}

	fields, err := encodeJSON(entity.Fields, "{}")
	if err != nil {
		return err
	}
	sources, err := encodeJSON(entity.ContributingSources, "[]")
	if err != nil {
		return err
	}
	conflicts, err := encodeJSON(entity.MergeConflicts, "{}")
	if err != nil {
		return err
	}

	var id string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO canonical_entities (id, entity_key, source_key, fields, contributing_sources, merge_conflicts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_key) DO UPDATE SET
			fields = excluded.fields,
			contributing_sources = excluded.contributing_sources,
			merge_conflicts = excluded.merge_conflicts,
			updated_at = excluded.updated_at
		RETURNING id
	`, uuid.New().String(), string(entity.Key), entity.Key.SourceKey(), fields, sources, conflicts,
		formatTime(entity.UpdatedAt)).Scan(&id)
	if err != nil {
		return err
	}

	entity.ID = id
	return nil
}

// FindCanonical returns the canonical entity for key.
func (s *Store) FindCanonical(ctx context.Context, key wikifuse.EntityKey) (*wikifuse.CanonicalEntity, error) {
	entities, err := s.FindCanonicals(ctx, wikifuse.CanonicalFilter{Key: &key, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, wikifuse.Errorf(wikifuse.ENOTFOUND, "entity %q not found", key)
	}
	return entities[0], nil
}

// FindCanonicals retrieves canonical entities matching the filter, ordered
// by entity key.
func (s *Store) FindCanonicals(ctx context.Context, filter wikifuse.CanonicalFilter) ([]*wikifuse.CanonicalEntity, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, entity_key, fields, contributing_sources, merge_conflicts, updated_at FROM canonical_entities WHERE 1=1")

	if filter.Key != nil {
		query.WriteString(" AND entity_key = ?")
		args = append(args, string(*filter.Key))
	}
	if filter.SourceKey != nil {
		query.WriteString(" AND source_key = ?")
		args = append(args, wikifuse.NormalizeSourceKey(*filter.SourceKey))
	}

	query.WriteString(" ORDER BY entity_key ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*wikifuse.CanonicalEntity
	for rows.Next() {
		entity, err := scanCanonical(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// DeleteCanonical removes the canonical entity for key.
func (s *Store) DeleteCanonical(ctx context.Context, key wikifuse.EntityKey) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM canonical_entities WHERE entity_key = ?", string(key))
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return wikifuse.Errorf(wikifuse.ENOTFOUND, "entity %q not found", key)
	}
	return nil
}

func scanCanonical(row scanner) (*wikifuse.CanonicalEntity, error) {
	var entity wikifuse.CanonicalEntity
	var key, fields, sources, conflicts, updatedAt string

	err := row.Scan(&entity.ID, &key, &fields, &sources, &conflicts, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikifuse.Errorf(wikifuse.ENOTFOUND, "entity not found")
	}
	if err != nil {
		return nil, err
	}
	entity.Key = wikifuse.EntityKey(key)

	if err := decodeJSON(fields, "fields", &entity.Fields); err != nil {
		return nil, err
	}
	if err := decodeJSON(sources, "contributing_sources", &entity.ContributingSources); err != nil {
		return nil, err
	}
	if err := decodeJSON(conflicts, "merge_conflicts", &entity.MergeConflicts); err != nil {
		return nil, err
	}
	if len(entity.MergeConflicts) == 0 {
		entity.MergeConflicts = nil
	}

	entity.UpdatedAt, err = parseTime(updatedAt, "updated_at")
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
