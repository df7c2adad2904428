package filter

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Striped is a counting Bloom filter whose counters are split by slot range
// into independently locked stripes. An operation locks every stripe touched
// by its probes, always in ascending stripe order.
//
// Size is tracked atomically and may briefly disagree with the counters while
// operations are in flight.
type Striped[C Counter] struct {
	family  Family
	width   uint32 // slots per stripe
	stripes []stripe[C]
	n       atomic.Int64
}

type stripe[C Counter] struct {
	mu       sync.Mutex
	counters []C
}

// NewStriped constructs a striped filter with m slots, k probes and at most
// stripes lock stripes. stripes is clamped into [1, m].
func NewStriped[C Counter](m, k, stripes uint32, opts ...Option) (*Striped[C], error) {
	o, err := newOptions(m, k, opts)
	if err != nil {
		return nil, err
	}
	width, count := stripeLayout(m, stripes)

	s := &Striped[C]{
		family:  NewFamily(m, k, o.hasher),
		width:   width,
		stripes: make([]stripe[C], count),
	}
	for i := range s.stripes {
		lo, hi := stripeSpan(uint32(i), width, m)
		s.stripes[i].counters = make([]C, hi-lo)
	}
	return s, nil
}

// stripeLayout clamps stripes into [1, m] and returns the per-stripe width and
// the number of non-empty stripes.
func stripeLayout(m, stripes uint32) (width, count uint32) {
	stripes = max(1, min(stripes, m))
	w := (uint64(m) + uint64(stripes) - 1) / uint64(stripes)
	return uint32(w), uint32((uint64(m) + w - 1) / w)
}

// stripeSpan returns the slot range [lo, hi) owned by stripe i.
func stripeSpan(i, width, m uint32) (lo, hi uint32) {
	lo64 := uint64(i) * uint64(width)
	return uint32(lo64), uint32(min(lo64+uint64(width), uint64(m)))
}

// NewStripedWithCapacity sizes a striped filter with Size.
func NewStripedWithCapacity[C Counter](n uint32, p float64, stripes uint32, opts ...Option) (*Striped[C], error) {
	m, k, err := Size(n, p)
	if err != nil {
		return nil, err
	}
	return NewStriped[C](m, k, stripes, opts...)
}

func (s *Striped[C]) M() uint32 { return s.family.m }
func (s *Striped[C]) K() uint32 { return s.family.k }

// Stripes returns the number of lock stripes.
func (s *Striped[C]) Stripes() int { return len(s.stripes) }

func (s *Striped[C]) Add(item []byte) {
	probes, held := s.lock(item)
	limit := maxCounter[C]()
	for _, p := range probes {
		c := s.counter(p)
		if *c < limit {
			*c++
		}
	}
	s.unlock(held)
	s.n.Add(1)
}

// Remove leaves counters at zero or at the maximum untouched, like
// Filter.Remove.
func (s *Striped[C]) Remove(item []byte) {
	probes, held := s.lock(item)
	limit := maxCounter[C]()
	for _, p := range probes {
		if c := s.counter(p); *c > 0 && *c < limit {
			*c--
		}
	}
	s.unlock(held)
	s.n.Add(-1)
}

func (s *Striped[C]) Contains(item []byte) bool {
	probes, held := s.lock(item)
	defer s.unlock(held)
	for _, p := range probes {
		if *s.counter(p) == 0 {
			return false
		}
	}
	return true
}

func (s *Striped[C]) Size() int64 { return s.n.Load() }

func (s *Striped[C]) EstimatedFalsePositiveRate() float64 {
	n := s.n.Load()
	if n <= 0 {
		return 0
	}
	return fpRate(float64(s.family.m), float64(s.family.k), float64(n))
}

func (s *Striped[C]) Saturated() int {
	limit := maxCounter[C]()
	var n int
	for i := range s.stripes {
		st := &s.stripes[i]
		st.mu.Lock()
		for _, c := range st.counters {
			if c == limit {
				n++
			}
		}
		st.mu.Unlock()
	}
	return n
}

// Reset locks every stripe in order, zeroes them and then zeroes Size.
func (s *Striped[C]) Reset() {
	for i := range s.stripes {
		s.stripes[i].mu.Lock()
	}
	for i := range s.stripes {
		clear(s.stripes[i].counters)
	}
	s.n.Store(0)
	for i := len(s.stripes) - 1; i >= 0; i-- {
		s.stripes[i].mu.Unlock()
	}
}

// lock computes the probes for item and locks the distinct stripes they fall
// in, lowest index first. The returned stripe list is in locking order.
func (s *Striped[C]) lock(item []byte) ([]uint32, []uint32) {
	probes := s.family.Probes(item, make([]uint32, 0, s.family.k))
	held := make([]uint32, len(probes))
	for i, p := range probes {
		held[i] = p / s.width
	}
	slices.Sort(held)
	held = slices.Compact(held)
	for _, idx := range held {
		s.stripes[idx].mu.Lock()
	}
	return probes, held
}

func (s *Striped[C]) unlock(held []uint32) {
	for i := len(held) - 1; i >= 0; i-- {
		s.stripes[held[i]].mu.Unlock()
	}
}

func (s *Striped[C]) counter(slot uint32) *C {
	return &s.stripes[slot/s.width].counters[slot%s.width]
}
