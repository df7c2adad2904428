package counting

import (
	"errors"
	"fmt"

	"github.com/haukened/cbf/internal/cbf/common/log"
	"github.com/haukened/cbf/internal/cbf/filter"
	"github.com/haukened/cbf/internal/cbf/repos/membership"
)

var (
	// ErrCounterBits is returned for counter widths other than 8, 16 and 32.
	ErrCounterBits = errors.New("counting: unsupported counter width")
	// ErrHasher is returned for an unknown hasher name.
	ErrHasher = errors.New("counting: unknown hasher")
)

// Options selects the filter built by the factory. When Slots and Hashes are
// both set they pin m and k; otherwise m and k are sized from the capacity
// passed to New and FPRate.
type Options struct {
	CounterBits uint8
	Hasher      string
	FPRate      float64
	Slots       uint32
	Hashes      uint32
	Stripes     uint32
	Logger      log.Logger
}

// factory implements membership.FilterFactory.
type factory struct {
	opts   Options
	hasher filter.Hasher
}

// NewFactory validates opts and returns a FilterFactory. Filters with
// Stripes > 1 use per-stripe locks; all others sit behind a single RWMutex.
func NewFactory(opts Options) (membership.FilterFactory, error) {
	h, err := hasherByName(opts.Hasher)
	if err != nil {
		return nil, err
	}
	switch opts.CounterBits {
	case 8, 16, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrCounterBits, opts.CounterBits)
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &factory{opts: opts, hasher: h}, nil
}

func hasherByName(name string) (filter.Hasher, error) {
	switch name {
	case "", "xxh3":
		return filter.XXH3{}, nil
	case "murmur3":
		return filter.Murmur3{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrHasher, name)
	}
}

// New builds an empty filter for capacity items.
func (f *factory) New(capacity uint32) (membership.Filter, error) {
	var (
		out membership.Filter
		err error
	)
	switch f.opts.CounterBits {
	case 8:
		out, err = build[uint8](capacity, f.opts, f.hasher)
	case 16:
		out, err = build[uint16](capacity, f.opts, f.hasher)
	default:
		out, err = build[uint32](capacity, f.opts, f.hasher)
	}
	if err != nil {
		return nil, err
	}

	f.opts.Logger.Debug(map[string]any{
		"capacity":     capacity,
		"slots":        out.M(),
		"hashes":       out.K(),
		"counter_bits": f.opts.CounterBits,
		"stripes":      f.opts.Stripes,
		"hasher":       f.opts.Hasher,
	}, "counting filter sized")
	return out, nil
}

// build pins m and k when both are configured and otherwise sizes the filter
// for capacity items at opts.FPRate.
func build[C filter.Counter](capacity uint32, opts Options, h filter.Hasher) (membership.Filter, error) {
	explicit := opts.Slots > 0 && opts.Hashes > 0
	withHasher := filter.WithHasher(h)

	if opts.Stripes > 1 {
		var (
			s   *filter.Striped[C]
			err error
		)
		if explicit {
			s, err = filter.NewStriped[C](opts.Slots, opts.Hashes, opts.Stripes, withHasher)
		} else {
			s, err = filter.NewStripedWithCapacity[C](capacity, opts.FPRate, opts.Stripes, withHasher)
		}
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	var (
		f   *filter.Filter[C]
		err error
	)
	if explicit {
		f, err = filter.New[C](opts.Slots, opts.Hashes, withHasher)
	} else {
		f, err = filter.NewWithCapacity[C](capacity, opts.FPRate, withHasher)
	}
	if err != nil {
		return nil, err
	}
	return filter.NewLocked(f), nil
}
