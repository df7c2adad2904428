package filter

import (
	"github.com/twmb/murmur3"
	"github.com/zeebo/xxh3"
)

// Hasher produces the two 64-bit base hashes every probe is derived from.
// Implementations must mix every byte of the item into both halves.
type Hasher interface {
	Sum128(item []byte) (h1, h2 uint64)
}

// XXH3 hashes items with xxh3-128. It is the default hasher.
type XXH3 struct{}

func (XXH3) Sum128(item []byte) (uint64, uint64) {
	h := xxh3.Hash128(item)
	return h.Lo, h.Hi
}

// Murmur3 hashes items with murmur3 x64-128.
type Murmur3 struct{}

func (Murmur3) Sum128(item []byte) (uint64, uint64) {
	return murmur3.Sum128(item)
}

// Family derives k probe slots in [0, m) for an item using double hashing:
//
//	probe(i) = (h1 + i*h2) mod m
//
// where h1 and h2 come from one evaluation of the base Hasher.
type Family struct {
	m      uint32
	k      uint32
	hasher Hasher
}

// NewFamily returns a probe family over m slots with k probes per item.
// A nil hasher selects XXH3.
func NewFamily(m, k uint32, h Hasher) Family {
	if h == nil {
		h = XXH3{}
	}
	return Family{m: m, k: k, hasher: h}
}

// Probe returns the slot for probe index i. It is deterministic for a given
// (i, item, m) and hasher.
func (f Family) Probe(i uint32, item []byte) uint32 {
	h1, h2 := f.hasher.Sum128(item)
	return slot(h1, h2, i, f.m)
}

// Probes appends all k probe slots for item to dst and returns the result.
// The base hash is computed once.
func (f Family) Probes(item []byte, dst []uint32) []uint32 {
	h1, h2 := f.hasher.Sum128(item)
	for i := uint32(0); i < f.k; i++ {
		dst = append(dst, slot(h1, h2, i, f.m))
	}
	return dst
}

func (f Family) base(item []byte) (uint64, uint64) {
	return f.hasher.Sum128(item)
}

func slot(h1, h2 uint64, i, m uint32) uint32 {
	return uint32((h1 + uint64(i)*h2) % uint64(m))
}
