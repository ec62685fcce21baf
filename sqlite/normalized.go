package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fwojciec/wikifuse"
	"github.com/google/uuid"
)

// SaveNormalized persists a normalized record. A record is identified by
// its source URL: saving a page again replaces the previous record and
// keeps its ID, so re-scrapes never duplicate a contribution.
func (s *Store) SaveNormalized(ctx context.Context, rec *wikifuse.NormalizedRecord) error {
	if rec.EntityKey == "" {
		return wikifuse.Errorf(wikifuse.EINVALID, "entity key required")
	}
	if rec.SourceURL == "" {
		return wikifuse.Errorf(wikifuse.EINVALID, "source url required")
	}

	fields, err := encodeJSON(rec.Fields, "{}")
	if err != nil {
		return err
	}
	rawValues, err := encodeJSON(rec.RawValues, "{}")
	if err != nil {
		return err
	}
	rec.ContentHash = hashFields(rec.Fields)

	var id string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO normalized_records (id, entity_key, source_key, source_url, fields, raw_values, quality_score, content_hash, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO UPDATE SET
			entity_key = excluded.entity_key,
			source_key = excluded.source_key,
			fields = excluded.fields,
			raw_values = excluded.raw_values,
			quality_score = excluded.quality_score,
			content_hash = excluded.content_hash,
			fetched_at = excluded.fetched_at
		RETURNING id
	`, uuid.New().String(), string(rec.EntityKey), rec.SourceKey, rec.SourceURL, fields, rawValues,
		rec.QualityScore, rec.ContentHash, formatTime(rec.FetchedAt)).Scan(&id)
	if err != nil {
		return err
	}

	rec.ID = id
	return nil
}

// FindByEntityKey returns every record stored for key, most recently
// fetched first.
func (s *Store) FindByEntityKey(ctx context.Context, key wikifuse.EntityKey) ([]*wikifuse.NormalizedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_key, source_key, source_url, fields, raw_values, quality_score, content_hash, fetched_at
		FROM normalized_records
		WHERE entity_key = ?
		ORDER BY fetched_at DESC, source_url ASC
	`, string(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*wikifuse.NormalizedRecord
	for rows.Next() {
		rec, err := scanNormalized(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindNormalizedByURL returns the record stored for a page.
// Returns ENOTFOUND if the page has not been stored.
func (s *Store) FindNormalizedByURL(ctx context.Context, sourceURL string) (*wikifuse.NormalizedRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_key, source_key, source_url, fields, raw_values, quality_score, content_hash, fetched_at
		FROM normalized_records
		WHERE source_url = ?
	`, sourceURL)

	rec, err := scanNormalized(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikifuse.Errorf(wikifuse.ENOTFOUND, "record not found")
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNormalized(row scanner) (*wikifuse.NormalizedRecord, error) {
	var rec wikifuse.NormalizedRecord
	var key, fields, rawValues, fetchedAt string

	if err := row.Scan(&rec.ID, &key, &rec.SourceKey, &rec.SourceURL, &fields, &rawValues,
		&rec.QualityScore, &rec.ContentHash, &fetchedAt); err != nil {
		return nil, err
	}
	rec.EntityKey = wikifuse.EntityKey(key)

	if err := decodeJSON(fields, "fields", &rec.Fields); err != nil {
		return nil, err
	}
	if err := decodeJSON(rawValues, "raw_values", &rec.RawValues); err != nil {
		return nil, err
	}
	if len(rec.RawValues) == 0 {
		rec.RawValues = nil
	}

	var err error
	rec.FetchedAt, err = parseTime(fetchedAt, "fetched_at")
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
