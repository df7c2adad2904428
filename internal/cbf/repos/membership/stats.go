package membership

// FilterStats is a snapshot of the counting filter's parameters and load.
type FilterStats struct {
	Size      int64   // net adds minus removes
	Slots     uint32  // m
	Hashes    uint32  // k
	Saturated int     // slots pinned at the counter maximum
	FPRate    float64 // live estimated false-positive rate

	Capacity     uint64  // items m and k support at the target rate
	DesignFPRate float64 // false-positive rate once Capacity items are held
}

// CacheStats reports lightweight cache metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type CacheStats struct {
	Capacity  int    // configured capacity (0 for disabled cache)
	Size      int    // current number of entries
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// StoreStats reports store metrics and metadata, read in one transaction.
type StoreStats struct {
	Items       uint64 // distinct items with a positive count
	Version     uint64 // bumped on every write
	UpdatedUnix int64  // last write unix time (0 if never written)
}

// RepoStats aggregates every layer.
type RepoStats struct {
	Filter      FilterStats
	Cache       CacheStats
	Store       StoreStats
	FilterHits  uint64 // queries answered "absent" by the filter alone
	LastRebuild int64  // unix seconds of the last Rebuild, 0 if never
}
