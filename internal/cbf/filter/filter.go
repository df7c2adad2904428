// Package filter implements a counting Bloom filter: a set-membership sketch
// that supports insertion, removal and approximate membership queries with a
// tunable false-positive rate and no false negatives for items whose net
// insertion count is positive.
//
// Each of the m slots holds a saturating counter of type C. Add increments the
// k probed counters (clamping at the maximum value of C), Remove decrements
// them but never below zero, and Contains reports true only when every probed
// counter is non-zero.
//
// A Filter is not safe for concurrent mutation. Wrap it in Locked, or use
// Striped, when it is shared between goroutines.
package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidParameters is returned by constructors for out-of-range sizing
// parameters. No filter is returned alongside it.
var ErrInvalidParameters = errors.New("cbf: invalid parameters")

// Counter is the set of counter widths a Filter can be built with.
type Counter interface {
	~uint8 | ~uint16 | ~uint32
}

// Option configures a Filter at construction.
type Option func(*options)

type options struct {
	hasher Hasher
}

// WithHasher selects the base hasher. The default is XXH3.
func WithHasher(h Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

func newOptions(m, k uint32, opts []Option) (options, error) {
	switch {
	case m == 0:
		return options{}, fmt.Errorf("%w: slot count must be positive", ErrInvalidParameters)
	case k == 0:
		return options{}, fmt.Errorf("%w: probe count must be positive", ErrInvalidParameters)
	case k > m:
		return options{}, fmt.Errorf("%w: probe count %d exceeds slot count %d", ErrInvalidParameters, k, m)
	}
	o := options{hasher: XXH3{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o, nil
}

// Filter is a counting Bloom filter with counters of width C.
type Filter[C Counter] struct {
	family   Family
	counters []C
	n        int64 // net adds minus removes, advisory
}

// New constructs a filter with m counter slots and k probes per item.
// It fails with ErrInvalidParameters if m == 0, k == 0 or k > m.
func New[C Counter](m, k uint32, opts ...Option) (*Filter[C], error) {
	o, err := newOptions(m, k, opts)
	if err != nil {
		return nil, err
	}
	return &Filter[C]{
		family:   NewFamily(m, k, o.hasher),
		counters: make([]C, m),
	}, nil
}

// NewWithCapacity constructs a filter sized by Size for n expected items at
// target false-positive rate p.
func NewWithCapacity[C Counter](n uint32, p float64, opts ...Option) (*Filter[C], error) {
	m, k, err := Size(n, p)
	if err != nil {
		return nil, err
	}
	return New[C](m, k, opts...)
}

// M returns the number of counter slots.
func (f *Filter[C]) M() uint32 { return f.family.m }

// K returns the number of probes per item.
func (f *Filter[C]) K() uint32 { return f.family.k }

// Add records one insertion of item. Probed counters saturate at the maximum
// value of C instead of wrapping.
func (f *Filter[C]) Add(item []byte) {
	h1, h2 := f.family.base(item)
	for i := uint32(0); i < f.family.k; i++ {
		s := slot(h1, h2, i, f.family.m)
		if f.counters[s] < maxCounter[C]() {
			f.counters[s]++
		}
	}
	f.n++
}

// Remove records one removal of item. A probed counter at zero stays at zero
// and a counter pinned at the maximum stays pinned, since it no longer knows
// how many insertions it holds. Size is decremented regardless.
func (f *Filter[C]) Remove(item []byte) {
	h1, h2 := f.family.base(item)
	limit := maxCounter[C]()
	for i := uint32(0); i < f.family.k; i++ {
		s := slot(h1, h2, i, f.family.m)
		if c := f.counters[s]; c > 0 && c < limit {
			f.counters[s]--
		}
	}
	f.n--
}

// Contains reports whether item may be in the filter. False is definite.
func (f *Filter[C]) Contains(item []byte) bool {
	h1, h2 := f.family.base(item)
	for i := uint32(0); i < f.family.k; i++ {
		if f.counters[slot(h1, h2, i, f.family.m)] == 0 {
			return false
		}
	}
	return true
}

// Size returns the net number of Add calls minus Remove calls. It is not an
// exact distinct-item count when items are added or removed repeatedly.
func (f *Filter[C]) Size() int64 { return f.n }

// EstimatedFalsePositiveRate returns (1 - exp(-k*n/m))^k for the current
// Size n. A non-positive Size yields 0.
func (f *Filter[C]) EstimatedFalsePositiveRate() float64 {
	if f.n <= 0 {
		return 0
	}
	return fpRate(float64(f.family.m), float64(f.family.k), float64(f.n))
}

// Saturated returns the number of slots whose counter is pinned at its
// maximum value.
func (f *Filter[C]) Saturated() int {
	limit := maxCounter[C]()
	var n int
	for _, c := range f.counters {
		if c == limit {
			n++
		}
	}
	return n
}

// Reset zeroes every counter and Size. M and K are unchanged.
func (f *Filter[C]) Reset() {
	clear(f.counters)
	f.n = 0
}

func maxCounter[C Counter]() C {
	return ^C(0)
}

