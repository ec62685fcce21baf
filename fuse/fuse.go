// Package fuse merges normalized records describing the same entity into a
// canonical entity.
//
// Records are ranked by quality score, then fetch time (newest first), then
// source URL (lexicographically smallest first), then record ID. For each
// field the highest ranked non-absent value wins and every distinct value it
// beat is recorded as a merge conflict. List fields are unioned instead, and
// map fields are merged per key with the same ranking.
// The result depends only on the set of records, never on their order.
package fuse

import (
	"cmp"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/normalize"
)

var _ wikifuse.Fuser = (*Fuser)(nil)

// Fuser implements wikifuse.Fuser.
type Fuser struct{}

// NewFuser creates a new Fuser.
func NewFuser() *Fuser {
	return &Fuser{}
}

// Fuse merges records into the canonical entity for key.
func (f *Fuser) Fuse(key wikifuse.EntityKey, records []*wikifuse.NormalizedRecord) (*wikifuse.CanonicalEntity, error) {
	if len(records) == 0 {
		return nil, wikifuse.Errorf(wikifuse.EEMPTY, "no records to fuse for %q", key)
	}

	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, compareRank)

	entity := &wikifuse.CanonicalEntity{
		Key:            key,
		Fields:         make(map[string]wikifuse.Value),
		MergeConflicts: make(map[string][]wikifuse.Value),
	}

	sources := make(map[string]bool)
	fields := make(map[string]bool)
	for _, rec := range ranked {
		sources[rec.SourceURL] = true
		if rec.FetchedAt.After(entity.UpdatedAt) {
			entity.UpdatedAt = rec.FetchedAt
		}
		for name, v := range rec.Fields {
			if !v.IsAbsent() {
				fields[name] = true
			}
		}
	}
	entity.ContributingSources = sortedKeys(sources)

	for _, name := range sortedKeys(fields) {
		var candidates []wikifuse.Value
		for _, rec := range ranked {
			if v := rec.Get(name); !v.IsAbsent() {
				candidates = append(candidates, v)
			}
		}

		if isListField(candidates) {
			entity.Fields[name] = union(candidates)
			continue
		}
		if isMapField(candidates) {
			merged, rejected := mergeMaps(candidates)
			entity.Fields[name] = merged
			if len(rejected) > 0 {
				entity.MergeConflicts[name] = rejected
			}
			continue
		}

		winner := candidates[0]
		entity.Fields[name] = winner
		if rejected := rejectedValues(winner, candidates[1:]); len(rejected) > 0 {
			entity.MergeConflicts[name] = rejected
		}
	}

	return entity, nil
}

// compareRank orders records best first.
func compareRank(a, b *wikifuse.NormalizedRecord) int {
	if c := cmp.Compare(b.QualityScore, a.QualityScore); c != 0 {
		return c
	}
	if c := b.FetchedAt.Compare(a.FetchedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SourceURL, b.SourceURL); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	return cmp.Compare(digest(a), digest(b))
}

// digest renders a record's fields canonically so records that tie on every
// ranking attribute still order the same way on every run.
func digest(rec *wikifuse.NormalizedRecord) string {
	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(rec.Fields[name].Key())
		b.WriteByte('\n')
	}
	return b.String()
}

func isListField(candidates []wikifuse.Value) bool {
	for _, v := range candidates {
		if v.Kind == wikifuse.KindList {
			return true
		}
	}
	return false
}

// union concatenates list values in rank order, dropping case-insensitive
// duplicates. Scalar candidates are treated as one-item lists.
func union(candidates []wikifuse.Value) wikifuse.Value {
	var items []string
	seen := make(map[string]bool)
	for _, v := range candidates {
		list := v.List
		if v.Kind != wikifuse.KindList {
			list = []string{v.String()}
		}
		for _, item := range list {
			key := normalize.Fold(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			items = append(items, item)
		}
	}
	return wikifuse.List(items...)
}

func isMapField(candidates []wikifuse.Value) bool {
	for _, v := range candidates {
		if v.Kind != wikifuse.KindMap {
			return false
		}
	}
	return true
}

// mergeMaps takes, for every map key, the value of the highest ranked
// candidate that has it. Distinct values it beat are returned as
// single-entry maps, in rank order.
func mergeMaps(candidates []wikifuse.Value) (wikifuse.Value, []wikifuse.Value) {
	merged := make(map[string]string)
	var rejected []wikifuse.Value
	seen := make(map[string]bool)
	for _, v := range candidates {
		for _, k := range slices.Sorted(maps.Keys(v.Map)) {
			val := v.Map[k]
			winner, ok := merged[k]
			if !ok {
				merged[k] = val
				continue
			}
			id := k + "\x00" + normalize.Fold(val)
			if normalize.Fold(winner) == normalize.Fold(val) || seen[id] {
				continue
			}
			seen[id] = true
			rejected = append(rejected, wikifuse.Map(map[string]string{k: val}))
		}
	}
	return wikifuse.Map(merged), rejected
}

// rejectedValues returns the distinct candidates that differ from the
// winner, in rank order.
func rejectedValues(winner wikifuse.Value, rest []wikifuse.Value) []wikifuse.Value {
	var out []wikifuse.Value
	seen := map[string]bool{winner.Key(): true}
	for _, v := range rest {
		if seen[v.Key()] {
			continue
		}
		seen[v.Key()] = true
		out = append(out, v)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
