package d12

import (
	"fmt"
	"log/slog"

	"github.com/framelink/host/internal/d3d12"
	"github.com/framelink/host/internal/logging"
	"github.com/framelink/host/internal/shmem"
)

// slotEntry caches the placed GPU resource backing one frame buffer slot.
// The cached resource is reused as long as the slot is bound to the same
// frame buffer and the cached size covers the request.
type slotEntry struct {
	fb       *shmem.FrameBuffer
	size     uint64
	resource d3d12.Resource
}

func (e *slotEntry) release() {
	if e.resource != nil {
		e.resource.Release()
	}
	*e = slotEntry{}
}

// resourceFor returns the placed resource for a slot, creating or replacing
// the cached one when the binding or size no longer fits. The returned
// resource carries an extra reference the caller must release. On creation
// failure the previous cache entry is left untouched.
func (d *Pipeline) resourceFor(slot int, fb *shmem.FrameBuffer, size uint64) (d3d12.Resource, error) {
	e := &d.slots[slot]
	if e.resource != nil && e.fb == fb && e.size >= size {
		e.resource.AddRef()
		return e.resource, nil
	}

	offset := uint64(uintptr(fb.Data()) - uintptr(d.heapBase))
	desc := d3d12.ResourceDesc{
		Dimension:        d3d12.ResourceDimensionBuffer,
		Alignment:        d3d12.DefaultResourcePlacementAlignment,
		Width:            size,
		Height:           1,
		DepthOrArraySize: 1,
		MipLevels:        1,
		Format:           d3d12.FormatUnknown,
		SampleDesc:       d3d12.SampleDesc{Count: 1},
		Layout:           d3d12.TextureLayoutRowMajor,
		Flags:            d3d12.ResourceFlagAllowCrossAdapter,
	}

	resource, err := d.device.CreatePlacedResource(d.heap, offset, &desc, d3d12.ResourceStateCopyDest)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %d at offset 0x%x: %v",
			ErrResourceCreation, slot, offset, err)
	}

	if e.resource != nil {
		e.resource.Release()
	}
	e.fb = fb
	e.size = size
	e.resource = resource

	d.log.Debug("created slot frame buffer resource",
		slog.Int(logging.KeySlot, slot),
		slog.Uint64("offset", offset),
		slog.Uint64("size", size))

	resource.AddRef()
	return resource, nil
}
