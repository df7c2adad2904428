package bolt

import (
	"encoding/binary"
	"errors"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/cbf/internal/cbf/common/clock"
	"github.com/haukened/cbf/internal/cbf/repos/membership"
)

var (
	bucketItems = []byte("items")
	bucketMeta  = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// ErrEmptyItem is returned for zero-length items, which bbolt cannot key.
var ErrEmptyItem = errors.New("bolt: empty item")

type bucketCreator interface {
	CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error)
}

type bucketDeleter interface {
	DeleteBucket(name []byte) error
}

// seams for tests
var (
	ensureBucketsFn = ensureBuckets
	deleteBucketsFn = deleteBuckets
	writeMetaFn     = writeMeta
)

func ensureBuckets(tx bucketCreator) error {
	for _, name := range [][]byte{bucketItems, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

// deleteBuckets drops the named buckets, ignoring ones that do not exist.
func deleteBuckets(tx bucketDeleter, names ...[]byte) error {
	for _, name := range names {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bberrors.ErrBucketNotFound) {
			return err
		}
	}
	return nil
}

// writeMeta bumps the version and stamps the update time.
func writeMeta(tx *bbolt.Tx, updatedUnix int64) error {
	b := tx.Bucket(bucketMeta)
	var version uint64
	if v := b.Get(keyVersion); len(v) == 8 {
		version = binary.BigEndian.Uint64(v)
	}
	if err := b.Put(keyVersion, encodeCount(version+1)); err != nil {
		return err
	}
	return b.Put(keyUpdated, encodeCount(uint64(updatedUnix)))
}

func encodeCount(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func decodeCount(v []byte) uint64 {
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

// boltStore implements membership.Store using bbolt. Each present item is a
// key in the items bucket whose value is its big-endian uint64 count.
type boltStore struct {
	db    *bbolt.DB
	clock clock.Clock
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
// A nil clk uses the wall clock.
func New(path string, clk clock.Clock) (membership.Store, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error { return ensureBucketsFn(tx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db, clock: clk}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// Increment adds one to the count of item and returns the new count.
func (s *boltStore) Increment(item []byte) (uint64, error) {
	if len(item) == 0 {
		return 0, ErrEmptyItem
	}
	var n uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketItems)
		n = decodeCount(b.Get(item)) + 1
		if err := b.Put(item, encodeCount(n)); err != nil {
			return err
		}
		return writeMetaFn(tx, s.clock.Now().Unix())
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Decrement subtracts one from the count of item and returns the count it
// had before. An item reaching zero is deleted; an absent item is left alone
// and reports 0.
func (s *boltStore) Decrement(item []byte) (uint64, error) {
	if len(item) == 0 {
		return 0, ErrEmptyItem
	}
	var prev uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketItems)
		prev = decodeCount(b.Get(item))
		var err error
		switch prev {
		case 0:
			return nil
		case 1:
			err = b.Delete(item)
		default:
			err = b.Put(item, encodeCount(prev-1))
		}
		if err != nil {
			return err
		}
		return writeMetaFn(tx, s.clock.Now().Unix())
	})
	if err != nil {
		return 0, err
	}
	return prev, nil
}

func (s *boltStore) Count(item []byte) (uint64, error) {
	if len(item) == 0 {
		return 0, nil
	}
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketItems); b != nil {
			n = decodeCount(b.Get(item))
		}
		return nil
	})
	return n, err
}

// ForEach visits every stored item in key order until visit returns false.
// The item slice is a copy and may be retained.
func (s *boltStore) ForEach(visit func(item []byte, count uint64) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketItems)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			kk := make([]byte, len(k))
			copy(kk, k)
			if !visit(kk, decodeCount(v)) {
				return nil
			}
		}
		return nil
	})
}

// Purge drops every item. The meta version keeps counting.
func (s *boltStore) Purge() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteBucketsFn(tx, bucketItems); err != nil {
			return err
		}
		if err := ensureBucketsFn(tx); err != nil {
			return err
		}
		return writeMetaFn(tx, s.clock.Now().Unix())
	})
}

func (s *boltStore) Stats() membership.StoreStats {
	st := membership.StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketItems); b != nil {
			st.Items = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			st.Version = decodeCount(b.Get(keyVersion))
			st.UpdatedUnix = int64(decodeCount(b.Get(keyUpdated)))
		}
		return nil
	})
	return st
}

var _ membership.Store = (*boltStore)(nil)
