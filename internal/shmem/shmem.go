// Package shmem manages the externally shared memory region that frames are
// published into. The region is divided into fixed slots; each slot holds a
// small write-cursor header followed by the pixel data. The data offset of
// every slot is aligned to the GPU heap alignment so the slots can back
// placed GPU resources directly.
package shmem

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrNotSupported is returned on platforms without a shared memory provider.
	ErrNotSupported = errors.New("shared memory not supported on this platform")
)

// Region is a contiguous block of externally visible memory.
type Region struct {
	base  unsafe.Pointer
	size  uint64
	buf   []byte // non-nil when slice-backed; pins the backing array
	close func() error
}

// FromSlice wraps an in-process byte slice as a Region. Used by tests and
// by loopback consumers; real deployments map a named section instead.
func FromSlice(b []byte) *Region {
	if len(b) == 0 {
		return &Region{}
	}
	return &Region{
		base: unsafe.Pointer(&b[0]),
		size: uint64(len(b)),
		buf:  b,
	}
}

// Base returns the region's base address.
func (r *Region) Base() unsafe.Pointer { return r.base }

// Size returns the region's size in bytes.
func (r *Region) Size() uint64 { return r.size }

// Close unmaps the region if it was mapped.
func (r *Region) Close() error {
	if r.close != nil {
		err := r.close()
		r.close = nil
		return err
	}
	return nil
}

// Slots carves the region into count frame buffers. Each slot's data area
// begins at an offset that is a multiple of align; the first align bytes of
// every slot are reserved for the write-cursor header. align must be a
// power of two (the GPU reports 64KiB in practice).
func (r *Region) Slots(count int, align uint64) ([]*FrameBuffer, error) {
	if count < 1 {
		return nil, fmt.Errorf("shmem: slot count %d below minimum 1", count)
	}
	if align == 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("shmem: alignment %d is not a power of two", align)
	}

	stride := (r.size / uint64(count)) &^ (align - 1)
	if stride <= align {
		return nil, fmt.Errorf("shmem: region of %d bytes too small for %d slots at alignment %d",
			r.size, count, align)
	}

	fbs := make([]*FrameBuffer, count)
	for i := range fbs {
		slotBase := unsafe.Add(r.base, uintptr(uint64(i)*stride))
		fbs[i] = &FrameBuffer{
			cursor: (*uint32)(slotBase),
			data:   unsafe.Add(slotBase, uintptr(align)),
			size:   stride - align,
		}
	}
	return fbs, nil
}

// FrameBuffer is one slot of the shared region: an atomic write cursor the
// consumer polls, followed by the slot's pixel data.
type FrameBuffer struct {
	cursor *uint32
	data   unsafe.Pointer
	size   uint64
}

// Data returns the address of the slot's pixel data.
func (fb *FrameBuffer) Data() unsafe.Pointer { return fb.data }

// Size returns the number of data bytes available in the slot.
func (fb *FrameBuffer) Size() uint64 { return fb.size }

// SetWriteCursor publishes n bytes as ready for the consumer. The store is
// atomic so the consumer never observes a torn value; it is the final step
// of a frame publish.
func (fb *FrameBuffer) SetWriteCursor(n uint32) {
	atomic.StoreUint32(fb.cursor, n)
}

// WriteCursor returns the currently published byte count.
func (fb *FrameBuffer) WriteCursor() uint32 {
	return atomic.LoadUint32(fb.cursor)
}
