package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/cbf/internal/cbf/domain"
)

func TestDecisionCache_HitMissAndPut(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	_, ok := c.Get("alpha")
	assert.False(t, ok)

	want := domain.Decision{Present: true, Count: 3, Source: domain.SourceStore}
	c.Put("alpha", want)
	got, ok := c.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, want, got)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, 2, st.Capacity)
	assert.Equal(t, 1, st.Size)
}

func TestDecisionCache_EvictionAndLen(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	c.Put("a", domain.Decision{Present: true})
	c.Put("b", domain.Decision{Present: true})
	c.Put("c", domain.Decision{Present: true})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "least recently used entry is evicted")
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestDecisionCache_Invalidate(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	c.Put("a", domain.Decision{Present: true})
	c.Invalidate("a")
	c.Invalidate("never-cached")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestDecisionCache_PurgeCountsEvictions(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)
	c.Put("a", domain.Decision{})
	c.Put("b", domain.Decision{})
	c.Put("c", domain.Decision{})

	c.Purge()
	assert.Zero(t, c.Len())
	assert.Equal(t, uint64(3), c.Stats().Evictions)
}

func TestDecisionCache_Disabled(t *testing.T) {
	for _, size := range []int{0, -5} {
		c, err := New(size)
		require.NoError(t, err)

		c.Put("x", domain.Decision{Present: true})
		_, ok := c.Get("x")
		assert.False(t, ok)
		assert.Zero(t, c.Len())
		c.Invalidate("x")
		c.Purge()
		assert.Zero(t, c.Stats())
	}
}
