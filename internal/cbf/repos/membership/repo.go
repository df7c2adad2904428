package membership

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/haukened/cbf/internal/cbf/common/clock"
	"github.com/haukened/cbf/internal/cbf/common/log"
	"github.com/haukened/cbf/internal/cbf/domain"
	"github.com/haukened/cbf/internal/cbf/filter"
)

// Options configures NewRepository. Store, Cache and Factory are required.
type Options struct {
	Store   Store
	Cache   DecisionCache
	Factory FilterFactory

	// Capacity is the minimum item count a rebuilt filter is sized for.
	Capacity uint32
	// FPRate is the target false-positive rate the factory sizes for. It
	// feeds the capacity figures in Stats.
	FPRate float64

	Clock  clock.Clock
	Logger log.Logger
}

// repository implements Repository with a filter → cache → store pipeline on
// reads. Writes hold the lock across the store update and the filter update
// so the two never disagree about which items are present.
type repository struct {
	mu       sync.RWMutex
	store    Store
	cache    DecisionCache
	filter   Filter // nil until the first Rebuild
	factory  FilterFactory
	capacity uint32
	fpRate   float64
	clock    clock.Clock
	logger   log.Logger

	filterHits  atomic.Uint64
	lastRebuild atomic.Int64
}

// NewRepository constructs a Repository. The filter is empty until Rebuild is
// called; before that every query goes to the cache and store.
func NewRepository(opts Options) Repository {
	r := &repository{
		store:    opts.Store,
		cache:    opts.Cache,
		factory:  opts.Factory,
		capacity: opts.Capacity,
		fpRate:   opts.FPRate,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if r.clock == nil {
		r.clock = clock.RealClock{}
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	return r
}

// Add increments the stored count of item. The filter is updated only when
// the item goes from absent to present.
func (r *repository) Add(item []byte) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.store.Increment(item)
	if err != nil {
		return 0, fmt.Errorf("add %q: %w", item, err)
	}
	if n == 1 && r.filter != nil {
		r.filter.Add(item)
	}
	r.cache.Invalidate(string(item))
	return n, nil
}

// Remove decrements the stored count of item. Removing an absent item is a
// no-op for both store and filter.
func (r *repository) Remove(item []byte) (uint64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.store.Decrement(item)
	if err != nil {
		return 0, false, fmt.Errorf("remove %q: %w", item, err)
	}
	if prev == 0 {
		return 0, false, nil
	}
	if prev == 1 && r.filter != nil {
		r.filter.Remove(item)
	}
	r.cache.Invalidate(string(item))
	return prev - 1, true, nil
}

// Contains returns a membership decision for item.
// Policy: if the store fails after a filter positive, report the filter's
// "maybe" as present.
func (r *repository) Contains(item []byte) domain.Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 1) checkFilter: definite negatives skip cache and store
	if r.filter != nil && !r.filter.Contains(item) {
		r.filterHits.Add(1)
		return domain.AbsentDecision(domain.SourceFilter)
	}
	// 2) checkCache
	key := string(item)
	if d, ok := r.cache.Get(key); ok {
		d.Source = domain.SourceCache
		return d
	}
	// 3) checkStore
	n, err := r.store.Count(item)
	if err != nil {
		r.logger.Warn(map[string]any{"error": err.Error()}, "store lookup failed; using filter answer")
		return domain.Decision{Present: r.filter != nil, Source: domain.SourceFilter}
	}
	dec := domain.Decision{Present: n > 0, Count: n, Source: domain.SourceStore}
	// 4) updateCache
	r.cache.Put(key, dec)
	return dec
}

// Rebuild sizes a fresh filter for the stored item set, loads every present
// item once, swaps it in and purges the decision cache.
func (r *repository) Rebuild() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.store.Stats().Items
	capacity := max(r.capacity, uint32(min(items, math.MaxUint32)))
	f, err := r.factory.New(capacity)
	if err != nil {
		return fmt.Errorf("build filter for %d items: %w", capacity, err)
	}

	var loaded uint64
	err = r.store.ForEach(func(item []byte, _ uint64) bool {
		f.Add(item)
		loaded++
		return true
	})
	if err != nil {
		return fmt.Errorf("load items into filter: %w", err)
	}

	r.filter = f
	r.cache.Purge()
	r.lastRebuild.Store(r.clock.Now().Unix())

	r.logger.Info(map[string]any{
		"items":    loaded,
		"capacity": capacity,
		"slots":    f.M(),
		"hashes":   f.K(),
		"fp_rate":  f.EstimatedFalsePositiveRate(),
	}, "membership filter rebuilt")
	return nil
}

// Reset empties the store, the filter and the cache.
func (r *repository) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Purge(); err != nil {
		return fmt.Errorf("purge store: %w", err)
	}
	if r.filter != nil {
		r.filter.Reset()
	}
	r.cache.Purge()
	r.logger.Info(nil, "membership reset")
	return nil
}

// Stats returns a snapshot of every layer.
func (r *repository) Stats() RepoStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := RepoStats{
		Cache:       r.cache.Stats(),
		Store:       r.store.Stats(),
		FilterHits:  r.filterHits.Load(),
		LastRebuild: r.lastRebuild.Load(),
	}
	if r.filter != nil {
		st.Filter = FilterStats{
			Size:      r.filter.Size(),
			Slots:     r.filter.M(),
			Hashes:    r.filter.K(),
			Saturated: r.filter.Saturated(),
			FPRate:    r.filter.EstimatedFalsePositiveRate(),
		}
		m, k := st.Filter.Slots, st.Filter.Hashes
		st.Filter.Capacity = filter.Capacity(m, k, r.fpRate)
		st.Filter.DesignFPRate = filter.FalsePositiveRate(m, k, st.Filter.Capacity)
	}
	return st
}
