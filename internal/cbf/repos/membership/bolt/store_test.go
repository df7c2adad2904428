package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/cbf/internal/cbf/common/clock"
)

type assertErr struct{}

func (assertErr) Error() string { return "assert error" }

func openStore(t *testing.T) (*boltStore, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Unix(1_700_000_000, 0))
	st, err := New(filepath.Join(t.TempDir(), "items.db"), clk)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st.(*boltStore), clk
}

func TestBoltStore_IncrementDecrement(t *testing.T) {
	st, _ := openStore(t)
	item := []byte("alpha")

	n, err := st.Increment(item)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	n, err = st.Increment(item)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	c, err := st.Count(item)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c)

	prev, err := st.Decrement(item)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), prev)
	prev, err = st.Decrement(item)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), prev)

	c, err = st.Count(item)
	require.NoError(t, err)
	assert.Zero(t, c)
	assert.Zero(t, st.Stats().Items, "zero counts are deleted")

	prev, err = st.Decrement(item)
	require.NoError(t, err)
	assert.Zero(t, prev, "decrementing an absent item is a no-op")
}

func TestBoltStore_EmptyItem(t *testing.T) {
	st, _ := openStore(t)
	_, err := st.Increment(nil)
	assert.ErrorIs(t, err, ErrEmptyItem)
	_, err = st.Decrement([]byte{})
	assert.ErrorIs(t, err, ErrEmptyItem)
	n, err := st.Count(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestBoltStore_ForEach(t *testing.T) {
	st, _ := openStore(t)
	for _, s := range []string{"c", "a", "b", "a"} {
		_, err := st.Increment([]byte(s))
		require.NoError(t, err)
	}

	var keys []string
	var counts []uint64
	require.NoError(t, st.ForEach(func(item []byte, n uint64) bool {
		keys = append(keys, string(item))
		counts = append(counts, n)
		return true
	}))
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, []uint64{2, 1, 1}, counts)

	var seen int
	require.NoError(t, st.ForEach(func([]byte, uint64) bool {
		seen++
		return false
	}))
	assert.Equal(t, 1, seen)
}

func TestBoltStore_StatsAndMeta(t *testing.T) {
	st, clk := openStore(t)
	empty := st.Stats()
	assert.Zero(t, empty.Items)
	assert.Zero(t, empty.Version)
	assert.Zero(t, empty.UpdatedUnix)

	_, _ = st.Increment([]byte("a"))
	clk.Advance(time.Minute)
	_, _ = st.Increment([]byte("b"))

	s := st.Stats()
	assert.Equal(t, uint64(2), s.Items)
	assert.Equal(t, uint64(2), s.Version)
	assert.Equal(t, int64(1_700_000_060), s.UpdatedUnix)

	// no-op decrement does not bump the version
	_, _ = st.Decrement([]byte("zzz"))
	assert.Equal(t, uint64(2), st.Stats().Version)
}

func TestBoltStore_Purge(t *testing.T) {
	st, _ := openStore(t)
	_, _ = st.Increment([]byte("a"))
	_, _ = st.Increment([]byte("b"))

	require.NoError(t, st.Purge())
	s := st.Stats()
	assert.Zero(t, s.Items)
	assert.Equal(t, uint64(3), s.Version)

	n, err := st.Increment([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestBoltStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.db")
	st, err := New(path, nil)
	require.NoError(t, err)
	_, _ = st.Increment([]byte("kept"))
	_, _ = st.Increment([]byte("kept"))
	require.NoError(t, st.Close())

	st, err = New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	n, err := st.Count([]byte("kept"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestNew_OpenError(t *testing.T) {
	st, err := New(filepath.Join(t.TempDir(), "no-such-dir", "items.db"), nil)
	assert.Error(t, err)
	assert.Nil(t, st)
}

type fakeBucketCreator struct{ fail string }

func (f fakeBucketCreator) CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error) {
	if string(name) == f.fail {
		return nil, assertErr{}
	}
	return nil, nil
}

func TestNew_EnsureBucketsErrors(t *testing.T) {
	for _, fail := range []string{string(bucketItems), string(bucketMeta)} {
		t.Run(fail, func(t *testing.T) {
			old := ensureBucketsFn
			ensureBucketsFn = func(bucketCreator) error {
				return ensureBuckets(fakeBucketCreator{fail: fail})
			}
			defer func() { ensureBucketsFn = old }()

			st, err := New(filepath.Join(t.TempDir(), "items.db"), nil)
			assert.ErrorIs(t, err, assertErr{})
			assert.Nil(t, st)
		})
	}
}

type bucketDeleterFunc func(name []byte) error

func (f bucketDeleterFunc) DeleteBucket(name []byte) error { return f(name) }

func TestDeleteBuckets(t *testing.T) {
	tests := []struct {
		name    string
		errs    map[string]error
		wantErr bool
	}{
		{"all deleted", nil, false},
		{"missing bucket ignored", map[string]error{"a": bberrors.ErrBucketNotFound}, false},
		{"first fails", map[string]error{"a": assertErr{}}, true},
		{"second fails", map[string]error{"b": assertErr{}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls []string
			del := bucketDeleterFunc(func(name []byte) error {
				calls = append(calls, string(name))
				return tc.errs[string(name)]
			})
			err := deleteBuckets(del, []byte("a"), []byte("b"))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, calls)
		})
	}
}

func TestBoltStore_WriteErrorPaths(t *testing.T) {
	st, _ := openStore(t)
	_, err := st.Increment([]byte("a"))
	require.NoError(t, err)

	oldMeta := writeMetaFn
	writeMetaFn = func(*bbolt.Tx, int64) error { return assertErr{} }
	_, err = st.Increment([]byte("a"))
	assert.ErrorIs(t, err, assertErr{})
	_, err = st.Decrement([]byte("a"))
	assert.ErrorIs(t, err, assertErr{})
	assert.ErrorIs(t, st.Purge(), assertErr{})
	writeMetaFn = oldMeta

	// failed transactions roll back
	n, err := st.Count([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	oldDel := deleteBucketsFn
	deleteBucketsFn = func(bucketDeleter, ...[]byte) error { return assertErr{} }
	assert.ErrorIs(t, st.Purge(), assertErr{})
	deleteBucketsFn = oldDel

	oldEns := ensureBucketsFn
	ensureBucketsFn = func(bucketCreator) error { return assertErr{} }
	assert.ErrorIs(t, st.Purge(), assertErr{})
	ensureBucketsFn = oldEns

	n, err = st.Count([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestDecodeCount_ShortValue(t *testing.T) {
	assert.Zero(t, decodeCount(nil))
	assert.Zero(t, decodeCount([]byte{1, 2, 3}))
	assert.Equal(t, uint64(7), decodeCount(encodeCount(7)))
}
