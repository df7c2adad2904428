package filter

import (
	"fmt"
	"math"
)

// Size derives filter parameters from an expected item count n and a target
// false-positive rate p using the standard formulas:
//
//	m = ceil(-(n * ln p) / (ln 2)^2)
//	k = round((m / n) * ln 2)
//
// k is clamped into [1, m]. Size fails with ErrInvalidParameters when n is zero,
// p is outside (0, 1), or m does not fit in a uint32.
func Size(n uint32, p float64) (m, k uint32, err error) {
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: expected items must be positive", ErrInvalidParameters)
	}
	if !(p > 0 && p < 1) {
		return 0, 0, fmt.Errorf("%w: false-positive rate %v not in (0, 1)", ErrInvalidParameters, p)
	}
	ln2 := math.Ln2
	mf := math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2))
	if mf > math.MaxUint32 {
		return 0, 0, fmt.Errorf("%w: %v slots exceeds %d", ErrInvalidParameters, mf, uint32(math.MaxUint32))
	}
	m = uint32(math.Max(1, mf))
	kf := math.Round((float64(m) / float64(n)) * ln2)
	k = uint32(math.Min(math.Max(1, kf), float64(m)))
	return m, k, nil
}

// FalsePositiveRate returns the design-time false-positive probability of a
// filter with m slots and k probes holding n items:
//
//	p = (1 - exp(-k * n / m))^k
func FalsePositiveRate(m, k uint32, n uint64) float64 {
	if m == 0 || k == 0 || n == 0 {
		return 0
	}
	return fpRate(float64(m), float64(k), float64(n))
}

// Capacity returns how many items a filter with m slots and k probes can hold
// before its false-positive rate exceeds p:
//
//	n = ceil(m / (-k / ln(1 - exp(ln p / k))))
//
// It returns 0 for degenerate parameters.
func Capacity(m, k uint32, p float64) uint64 {
	if m == 0 || k == 0 || !(p > 0 && p < 1) {
		return 0
	}
	kf := float64(k)
	n := math.Ceil(float64(m) / (-kf / math.Log(1-math.Exp(math.Log(p)/kf))))
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return uint64(n)
}

func fpRate(m, k, n float64) float64 {
	return math.Pow(1-math.Exp(-k*n/m), k)
}
