package memhandle

import (
	"fmt"

	"github.com/edsrzf/mmap-go"
)

// Backing materializes raw storage for a Handle. The default, used by
// every Handle unless overridden, is HeapBacking; MMapBacking is
// offered for arenas whose tables are expected to grow large enough
// that one mmap'd region is preferable to incremental heap growth.
type Backing interface {
	// Grow returns a freshly zeroed buffer of exactly n bytes.
	Grow(n uint64) ([]byte, error)
	// Release returns a buffer previously obtained from Grow. HeapBacking
	// treats this as a no-op (the garbage collector reclaims it);
	// MMapBacking unmaps the region.
	Release(buf []byte) error
}

// HeapBacking grows storage with ordinary Go heap allocations.
type HeapBacking struct{}

func (HeapBacking) Grow(n uint64) ([]byte, error) {
	return make([]byte, n), nil
}

func (HeapBacking) Release([]byte) error { return nil }

// MMapBacking grows storage as anonymous mmap regions via
// github.com/edsrzf/mmap-go, giving each reservation a single
// contiguous block obtained and released in one syscall - the literal
// rendition of spec.md §4.4's "combined bucket + link-ring allocation
// in one contiguous block".
type MMapBacking struct{}

func (MMapBacking) Grow(n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	region, err := mmap.MapRegion(nil, int(n), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap backing: map %d bytes: %w", n, err)
	}
	return []byte(region), nil
}

func (MMapBacking) Release(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	region := mmap.MMap(buf)
	if err := region.Unmap(); err != nil {
		return fmt.Errorf("mmap backing: unmap: %w", err)
	}
	return nil
}
