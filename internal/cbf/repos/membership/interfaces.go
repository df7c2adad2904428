package membership

import "github.com/haukened/cbf/internal/cbf/domain"

// Filter is the counting Bloom filter surface the repository drives.
// Implementations must be safe for concurrent use.
type Filter interface {
	Add(item []byte)
	Remove(item []byte)
	Contains(item []byte) bool
	Size() int64
	EstimatedFalsePositiveRate() float64
	Reset()
	M() uint32
	K() uint32
	Saturated() int
}

// FilterFactory builds filters sized for at least capacity items.
type FilterFactory interface {
	New(capacity uint32) (Filter, error)
}

// DecisionCache caches membership decisions by item with basic metrics.
type DecisionCache interface {
	Get(item string) (domain.Decision, bool)
	Put(item string, d domain.Decision)
	Invalidate(item string)
	Len() int
	Purge()
	Stats() CacheStats
}

// Store is the authoritative item multiplicity index.
// - Increment returns the count after the increment.
// - Decrement returns the count before the decrement and never goes below 0;
//   an item whose count reaches 0 is deleted.
// - ForEach visits items in key order until visit returns false.
type Store interface {
	Increment(item []byte) (uint64, error)
	Decrement(item []byte) (uint64, error)
	Count(item []byte) (uint64, error)
	ForEach(visit func(item []byte, count uint64) bool) error
	Purge() error
	Stats() StoreStats
	Close() error
}

// Repository composes filter → cache → store.
// Add returns the stored count after the add. Remove returns the count left
// and whether the item was present at all. The filter follows the 0↔1
// transitions of the stored count, so it never sees a removal of an item it
// does not hold. Contains answers from the first layer that can.
type Repository interface {
	Add(item []byte) (uint64, error)
	Remove(item []byte) (remaining uint64, removed bool, err error)
	Contains(item []byte) domain.Decision
	Rebuild() error
	Reset() error
	Stats() RepoStats
}
