// Package bloom tracks visited page URLs in constant memory.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter is a probabilistic set of URL keys. A key reported absent was
// never added; a key reported present was added with probability
// 1-FalsePositiveRate. Filter is not safe for concurrent use.
type Filter struct {
	f      *bloom.BloomFilter
	fpRate float64
	added  uint
}

// NewFilter returns a Filter sized for n keys at the given false positive
// rate. Rates outside (0, 1) fall back to 1%.
func NewFilter(n uint, fpRate float64) *Filter {
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	if n == 0 {
		n = 1
	}
	return &Filter{f: bloom.NewWithEstimates(n, fpRate), fpRate: fpRate}
}

// Visit records key and reports whether it had been recorded before.
func (f *Filter) Visit(key string) bool {
	present := f.f.TestAndAddString(key)
	if !present {
		f.added++
	}
	return present
}

// Contains reports whether key may have been recorded.
func (f *Filter) Contains(key string) bool {
	return f.f.TestString(key)
}

// Len returns the number of keys Visit reported as new.
func (f *Filter) Len() uint {
	return f.added
}

// FalsePositiveRate returns the estimated probability that Contains reports
// an unrecorded key at the filter's current fill.
func (f *Filter) FalsePositiveRate() float64 {
	if f.added == 0 {
		return 0
	}
	return bloom.EstimateFalsePositiveRate(f.f.Cap(), f.f.K(), f.added)
}
