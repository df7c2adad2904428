package filter

import "sync"

// Locked guards a Filter with a single RWMutex. Add, Remove and Reset are
// serialized; Contains and the read accessors may run concurrently.
type Locked[C Counter] struct {
	mu sync.RWMutex
	f  *Filter[C]
}

// NewLocked wraps f. The caller must not use f directly afterwards.
func NewLocked[C Counter](f *Filter[C]) *Locked[C] {
	return &Locked[C]{f: f}
}

func (l *Locked[C]) Add(item []byte) {
	l.mu.Lock()
	l.f.Add(item)
	l.mu.Unlock()
}

func (l *Locked[C]) Remove(item []byte) {
	l.mu.Lock()
	l.f.Remove(item)
	l.mu.Unlock()
}

func (l *Locked[C]) Contains(item []byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.Contains(item)
}

func (l *Locked[C]) Size() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.Size()
}

func (l *Locked[C]) EstimatedFalsePositiveRate() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.EstimatedFalsePositiveRate()
}

func (l *Locked[C]) Saturated() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.Saturated()
}

func (l *Locked[C]) Reset() {
	l.mu.Lock()
	l.f.Reset()
	l.mu.Unlock()
}

// M and K are fixed at construction and need no lock.
func (l *Locked[C]) M() uint32 { return l.f.M() }
func (l *Locked[C]) K() uint32 { return l.f.K() }
