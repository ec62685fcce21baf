package wikifuse

import (
	"strings"
	"time"
)

// EntityKey identifies a real-world entity across sources. It has the form
// "<source_key>/<slug>" where slug is derived from the canonical name.
type EntityKey string

// SourceKey returns the source key portion of the entity key.
func (k EntityKey) SourceKey() string {
	s, _, _ := strings.Cut(string(k), "/")
	return s
}

// Provenance records where and when a record was obtained.
type Provenance struct {
	SourceURL string    `json:"source_url"`
	SourceKey string    `json:"source_key"`
	FetchedAt time.Time `json:"fetched_at"`

	// RawValues holds the original strings of fields whose normalization
	// failed, keyed by field name.
	RawValues map[string]string `json:"raw_values,omitempty"`
}

// RawRecord holds the values extracted from a single page before
// normalization.
type RawRecord struct {
	Fields map[string]Value
	Provenance
}

// Get returns the value for field, or absent.
func (r *RawRecord) Get(field string) Value {
	if r == nil || r.Fields == nil {
		return Absent()
	}
	return r.Fields[field]
}

// NormalizedRecord holds canonical field values for a single page.
type NormalizedRecord struct {
	ID           string
	EntityKey    EntityKey
	Fields       map[string]Value
	QualityScore float64
	ContentHash  string
	Provenance
}

// Get returns the value for field, or absent.
func (r *NormalizedRecord) Get(field string) Value {
	if r == nil || r.Fields == nil {
		return Absent()
	}
	return r.Fields[field]
}

// CanonicalEntity is the fused view of all records sharing an EntityKey.
// It is recomputed in full on every fusion run.
type CanonicalEntity struct {
	ID                  string
	Key                 EntityKey
	Fields              map[string]Value
	ContributingSources []string
	MergeConflicts      map[string][]Value

	// UpdatedAt is the latest fetch time among contributing records.
	UpdatedAt time.Time
}

// Get returns the value for field, or absent.
func (e *CanonicalEntity) Get(field string) Value {
	if e == nil || e.Fields == nil {
		return Absent()
	}
	return e.Fields[field]
}

// Validate returns an error if the entity contains invalid fields.
func (e *CanonicalEntity) Validate() error {
	if e.Key == "" {
		return Errorf(EINVALID, "entity key required")
	}
	if len(e.ContributingSources) == 0 {
		return Errorf(EINVALID, "entity %q has no contributing sources", e.Key)
	}
	return nil
}

// CanonicalFilter represents a filter for FindCanonicals.
type CanonicalFilter struct {
	Key       *EntityKey
	SourceKey *string

	Offset int
	Limit  int
}
