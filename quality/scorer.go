// Package quality scores normalized records by weighted field completeness.
package quality

import "github.com/fwojciec/wikifuse"

var _ wikifuse.Scorer = (*Scorer)(nil)

// DefaultPenalty is the share of a field's weight lost when its value is
// empty relative to the field's minimum length.
const DefaultPenalty = 0.5

// DefaultMinLengths are the minimum information lengths per field type.
var DefaultMinLengths = map[wikifuse.FieldType]int{
	wikifuse.FieldText:  2,
	wikifuse.FieldAlias: 2,
	wikifuse.FieldList:  1,
	wikifuse.FieldMap:   1,
	wikifuse.FieldDate:  0,
}

// Scorer computes weighted completeness:
//
//	score = sum(weight * credit for present fields) / sum(weight for all fields)
//
// A field whose value is shorter than its minimum length earns
// 1 - penalty*(1 - length/min) of its weight.
type Scorer struct {
	penalty float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithPenalty sets the short-value penalty, clamped to [0, 1].
func WithPenalty(p float64) Option {
	return func(s *Scorer) {
		s.penalty = clamp(p)
	}
}

// NewScorer creates a new Scorer.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{penalty: DefaultPenalty}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the quality of rec under cfg's schema, in [0, 1].
func (s *Scorer) Score(rec *wikifuse.NormalizedRecord, cfg *wikifuse.SourceConfig) float64 {
	var total, earned float64
	for _, spec := range cfg.Schema() {
		w := spec.EffectiveWeight()
		total += w
		v := rec.Get(spec.Name)
		if v.IsAbsent() {
			continue
		}
		earned += w * s.credit(v, minLength(spec))
	}
	if total == 0 {
		return 0
	}
	return clamp(earned / total)
}

func (s *Scorer) credit(v wikifuse.Value, min int) float64 {
	n := v.Len()
	if min <= 0 || n >= min {
		return 1
	}
	return 1 - s.penalty*(1-float64(n)/float64(min))
}

func minLength(spec wikifuse.FieldSpec) int {
	if spec.MinLength > 0 {
		return spec.MinLength
	}
	return DefaultMinLengths[spec.Type]
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
