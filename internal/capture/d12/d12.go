// Package d12 implements the GPU frame export pipeline: it selects a
// suitable adapter and desktop output, imports the shared memory region as
// a D3D12 heap, and copies backend-captured frames into per-slot placed
// buffer resources so they land directly in shared memory without touching
// system RAM in between.
package d12

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/comref"
	"github.com/framelink/host/internal/d3d12"
	"github.com/framelink/host/internal/logging"
	"github.com/framelink/host/internal/shmem"
)

// platformHooks abstracts the platform entry points so the pipeline logic
// can run against fakes in tests.
type platformHooks struct {
	createFactory func(debug bool) (d3d12.Factory, error)
	createDevice  func(adapter d3d12.Adapter, minFeatureLevel uint32) (d3d12.Device, error)
	enableDebug   func() error
}

// Options configures a Pipeline.
type Options struct {
	// Backend names the registered capture backend to drive.
	Backend string
	// Debug enables the D3D12 debug layer and DXGI debug factory.
	Debug bool
}

// Pipeline is the D3D12 frame export capture implementation.
type Pipeline struct {
	log   *slog.Logger
	hooks platformHooks
	opts  Options

	getPointerBuffer  capture.GetPointerBufferFn
	postPointerBuffer capture.PostPointerBufferFn

	backend Backend
	slots   []slotEntry

	// session-scoped COM handles, released together on Deinit
	scope    *comref.Scope
	factory  d3d12.Factory
	adapter  d3d12.Adapter
	output   d3d12.Output
	device   d3d12.Device
	queue    d3d12.CommandQueue
	copyCmd  d3d12.CommandGroup
	heap     d3d12.Heap
	heapBase unsafe.Pointer

	// queuePriority is downgraded at most once and remembered across
	// re-initialization.
	queuePriority int32

	lastFormat d3d12.ResourceDesc
	formatVer  uint32
}

var _ capture.Interface = (*Pipeline)(nil)

// New creates an unconfigured pipeline. Create must be called before Init.
func New(opts Options) *Pipeline {
	return &Pipeline{
		log:           logging.L("capture.d12"),
		hooks:         defaultHooks(),
		opts:          opts,
		queuePriority: d3d12.QueuePriorityGlobalRealtime,
	}
}

func (d *Pipeline) Name() string { return "D12" }

func (d *Pipeline) Create(getPointerBuffer capture.GetPointerBufferFn,
	postPointerBuffer capture.PostPointerBufferFn, slotCount int) error {

	if slotCount < 1 {
		return fmt.Errorf("slot count %d out of range", slotCount)
	}
	if getPointerBuffer == nil || postPointerBuffer == nil {
		return fmt.Errorf("pointer buffer callbacks are required")
	}

	backend, err := newBackend(d.opts.Backend, slotCount, d.opts.Debug)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	d.getPointerBuffer = getPointerBuffer
	d.postPointerBuffer = postPointerBuffer
	d.backend = backend
	d.slots = make([]slotEntry, slotCount)
	return nil
}

// Init brings up the device, copy queue, command group and shared heap,
// then hands the device to the backend. On any failure every handle
// acquired so far is released in reverse order.
func (d *Pipeline) Init(sharedMemoryBase unsafe.Pointer) (uint64, error) {
	if d.backend == nil {
		return 0, fmt.Errorf("init before create")
	}

	d.scope = comref.NewScope(16)
	local := d.scope.Push(8)
	ok := false
	defer func() {
		local.Pop()
		if !ok {
			d.scope.Pop()
			d.scope = nil
		}
	}()

	factory, err := d.hooks.createFactory(d.opts.Debug)
	if err != nil {
		return 0, fmt.Errorf("create DXGI factory: %w", err)
	}
	local.Track(factory)

	adapter, output, err := selectDevice(factory, d.log)
	if err != nil {
		return 0, err
	}
	local.Track(adapter)
	local.Track(output)

	if d.opts.Debug {
		if err := d.hooks.enableDebug(); err != nil {
			return 0, fmt.Errorf("enable debug layer: %w", err)
		}
	}

	device, err := d.hooks.createDevice(adapter, d3d12.FeatureLevel12_0)
	if err != nil {
		return 0, fmt.Errorf("create D3D12 device: %w", err)
	}
	local.Track(device)

	queue, err := createCopyQueue(device, &d.queuePriority, d.log)
	if err != nil {
		return 0, err
	}
	local.Track(queue)

	copyCmd, err := device.CreateCommandGroup(d3d12.CommandListTypeCopy, "Copy")
	if err != nil {
		return 0, fmt.Errorf("create copy command group: %w", err)
	}
	local.Track(copyCmd)

	heap, err := device.OpenExistingHeapFromAddress(sharedMemoryBase)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHeapImport, err)
	}
	local.Track(heap)

	heapDesc, err := heap.Desc()
	if err != nil {
		return 0, fmt.Errorf("query heap description: %w", err)
	}

	if err := d.backend.Init(device, adapter, output, d.updatePointer); err != nil {
		return 0, fmt.Errorf("init backend %q: %w", d.backend.Name(), err)
	}

	local.Promote(factory)
	local.Promote(adapter)
	local.Promote(output)
	local.Promote(device)
	local.Promote(queue)
	local.Promote(copyCmd)
	local.Promote(heap)

	d.factory = factory
	d.adapter = adapter
	d.output = output
	d.device = device
	d.queue = queue
	d.copyCmd = copyCmd
	d.heap = heap
	d.heapBase = sharedMemoryBase

	d.log.Info("pipeline initialized",
		slog.String(logging.KeyBackend, d.backend.Name()),
		slog.Uint64("heap_alignment", heapDesc.Alignment),
		slog.Int("slots", len(d.slots)))

	ok = true
	return heapDesc.Alignment, nil
}

func (d *Pipeline) Capture(slot int) capture.Result {
	result := d.backend.Capture(slot)
	if result == capture.ResultOK && d.backend.Fetch(slot) == nil {
		// the backend can report progress before it has produced a first
		// image, e.g. a cursor-only desktop update; nothing to export yet
		return capture.ResultTimeout
	}
	return result
}

// WaitFrame reports the slot's current frame metadata. A change in width,
// height or pixel format since the previous frame bumps the format version.
func (d *Pipeline) WaitFrame(slot int, maxBytes uint64) (*capture.Frame, capture.Result) {
	src := d.backend.Fetch(slot)
	if src == nil {
		d.log.Error(ErrBackendFrame.Error(),
			slog.Int(logging.KeySlot, slot))
		return nil, capture.ResultError
	}

	desc, err := src.Desc()
	if err != nil || desc.Width == 0 {
		d.log.Error("invalid source frame description",
			slog.Int(logging.KeySlot, slot))
		return nil, capture.ResultError
	}

	if desc.Width != d.lastFormat.Width ||
		desc.Height != d.lastFormat.Height ||
		desc.Format != d.lastFormat.Format {
		d.formatVer++
		d.lastFormat = desc
	}

	maxRows := uint32(maxBytes / (desc.Width * 4))
	width := uint32(desc.Width)

	frame := &capture.Frame{
		FormatVer:    d.formatVer,
		ScreenWidth:  width,
		ScreenHeight: desc.Height,
		DataWidth:    width,
		DataHeight:   min(maxRows, desc.Height),
		FrameWidth:   width,
		FrameHeight:  desc.Height,
		Truncated:    maxRows < desc.Height,
		Pitch:        width * 4,
		Stride:       width,
		Format:       capture.FormatBGRA,
		Rotation:     capture.Rotation0,
	}
	return frame, capture.ResultOK
}

// GetFrame copies the slot's current frame into fb's placed resource and
// publishes it by advancing the write cursor. The cursor only moves on a
// fully successful copy.
func (d *Pipeline) GetFrame(slot int, fb *shmem.FrameBuffer, maxBytes uint64) capture.Result {
	src := d.backend.Fetch(slot)
	if src == nil {
		d.log.Error(ErrBackendFrame.Error(),
			slog.Int(logging.KeySlot, slot))
		return capture.ResultError
	}

	dst, err := d.resourceFor(slot, fb, maxBytes)
	if err != nil {
		d.log.Error("frame buffer resource unavailable",
			slog.Int(logging.KeySlot, slot),
			slog.String(logging.KeyError, err.Error()))
		return capture.ResultError
	}
	defer dst.Release()

	desc, err := src.Desc()
	if err != nil {
		d.log.Error("query source frame description",
			slog.Int(logging.KeySlot, slot),
			slog.String(logging.KeyError, err.Error()))
		return capture.ResultError
	}

	srcLoc := d3d12.SubresourceCopyLocation(src.Ptr(), 0)
	dstLoc := d3d12.FootprintCopyLocation(dst.Ptr(), 0, d3d12.SubresourceFootprint{
		Format:   desc.Format,
		Width:    uint32(desc.Width),
		Height:   desc.Height,
		Depth:    1,
		RowPitch: uint32(desc.Width) * 4,
	})
	d.copyCmd.CopyTextureRegion(&dstLoc, &srcLoc)

	// the backend may need to fence the queue against its producer
	if result := d.backend.Sync(d.queue); result != capture.ResultOK {
		return result
	}

	if err := d.copyCmd.Execute(d.queue); err != nil {
		d.log.Error("execute copy",
			slog.Int(logging.KeySlot, slot),
			slog.String(logging.KeyError, err.Error()))
		return capture.ResultError
	}

	fb.SetWriteCursor(desc.Height * uint32(desc.Width) * 4)
	return capture.ResultOK
}

// updatePointer forwards a cursor event from the backend. When a shape
// update cannot be stored the event is still delivered, with the shape
// flag cleared.
func (d *Pipeline) updatePointer(p *capture.Pointer, shape []byte) {
	if p.ShapeUpdate {
		buf, ok := d.getPointerBuffer()
		if !ok {
			d.log.Error("failed to obtain a buffer for the pointer shape")
			p.ShapeUpdate = false
		} else {
			copy(buf, shape)
		}
	}
	d.postPointerBuffer(p)
}

func (d *Pipeline) Stop() {}

// Deinit releases the device-bound session state. Format tracking and the
// remembered queue priority survive so a following Init continues where
// this one left off.
func (d *Pipeline) Deinit() error {
	var err error
	if d.backend != nil {
		err = d.backend.Deinit()
	}

	for i := range d.slots {
		d.slots[i].release()
	}
	if d.scope != nil {
		d.scope.Pop()
		d.scope = nil
	}
	d.factory = nil
	d.adapter = nil
	d.output = nil
	d.device = nil
	d.queue = nil
	d.copyCmd = nil
	d.heap = nil
	d.heapBase = nil
	return err
}

func (d *Pipeline) Free() {
	if d.backend != nil {
		d.backend.Free()
		d.backend = nil
	}
	d.slots = nil
	d.getPointerBuffer = nil
	d.postPointerBuffer = nil
}
