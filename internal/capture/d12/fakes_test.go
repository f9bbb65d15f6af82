package d12

import (
	"errors"
	"unicode/utf16"
	"unsafe"

	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/d3d12"
)

// In-memory stand-ins for the d3d12 interfaces. They record enough call
// history for the tests to assert on resource lifecycle and queue setup.

type fakeResource struct {
	desc     d3d12.ResourceDesc
	refs     int
	released int
}

func (r *fakeResource) Desc() (d3d12.ResourceDesc, error) { return r.desc, nil }
func (r *fakeResource) Ptr() uintptr                      { return uintptr(unsafe.Pointer(r)) }
func (r *fakeResource) AddRef()                           { r.refs++ }
func (r *fakeResource) Release()                          { r.refs--; r.released++ }

type fakeHeap struct {
	alignment uint64
	released  bool
}

func (h *fakeHeap) Desc() (d3d12.HeapDesc, error) {
	return d3d12.HeapDesc{Alignment: h.alignment}, nil
}
func (h *fakeHeap) Ptr() uintptr { return uintptr(unsafe.Pointer(h)) }
func (h *fakeHeap) Release()     { h.released = true }

type fakeQueue struct {
	name     string
	desc     d3d12.CommandQueueDesc
	released bool
}

func (q *fakeQueue) SetName(name string)                   { q.name = name }
func (q *fakeQueue) Wait(fence d3d12.Fence, v uint64) error { return nil }
func (q *fakeQueue) Ptr() uintptr                          { return uintptr(unsafe.Pointer(q)) }
func (q *fakeQueue) Release()                              { q.released = true }

type recordedCopy struct {
	dst, src d3d12.TextureCopyLocation
}

type fakeCommandGroup struct {
	copies   []recordedCopy
	executes int
	execErr  error
	released bool
}

func (g *fakeCommandGroup) CopyTextureRegion(dst, src *d3d12.TextureCopyLocation) {
	g.copies = append(g.copies, recordedCopy{dst: *dst, src: *src})
}

func (g *fakeCommandGroup) Execute(queue d3d12.CommandQueue) error {
	g.executes++
	return g.execErr
}

func (g *fakeCommandGroup) Release() { g.released = true }

type fakeDevice struct {
	// queueErrs is consumed one entry per CreateCommandQueue call; nil
	// entries (and calls past the end) succeed.
	queueErrs  []error
	queueDescs []d3d12.CommandQueueDesc
	queues     []*fakeQueue

	group *fakeCommandGroup

	heap    *fakeHeap
	heapErr error

	placedErr error
	placed    []*fakeResource

	released bool
}

func (d *fakeDevice) CreateCommandQueue(desc *d3d12.CommandQueueDesc) (d3d12.CommandQueue, error) {
	call := len(d.queueDescs)
	d.queueDescs = append(d.queueDescs, *desc)
	if call < len(d.queueErrs) && d.queueErrs[call] != nil {
		return nil, d.queueErrs[call]
	}
	q := &fakeQueue{desc: *desc}
	d.queues = append(d.queues, q)
	return q, nil
}

func (d *fakeDevice) CreateCommandGroup(listType int32, name string) (d3d12.CommandGroup, error) {
	if d.group == nil {
		d.group = &fakeCommandGroup{}
	}
	return d.group, nil
}

func (d *fakeDevice) OpenExistingHeapFromAddress(base unsafe.Pointer) (d3d12.Heap, error) {
	if d.heapErr != nil {
		return nil, d.heapErr
	}
	if d.heap == nil {
		d.heap = &fakeHeap{alignment: 0x10000}
	}
	return d.heap, nil
}

func (d *fakeDevice) CreatePlacedResource(heap d3d12.Heap, offset uint64,
	desc *d3d12.ResourceDesc, initialState uint32) (d3d12.Resource, error) {
	if d.placedErr != nil {
		return nil, d.placedErr
	}
	r := &fakeResource{desc: *desc, refs: 1}
	d.placed = append(d.placed, r)
	return r, nil
}

func (d *fakeDevice) OpenSharedResource(handle uintptr) (d3d12.Resource, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDevice) OpenSharedFence(handle uintptr) (d3d12.Fence, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDevice) Ptr() uintptr { return uintptr(unsafe.Pointer(d)) }
func (d *fakeDevice) Release()     { d.released = true }

type fakeOutput struct {
	desc     d3d12.OutputDesc
	released bool
}

func (o *fakeOutput) Desc() (d3d12.OutputDesc, error) { return o.desc, nil }
func (o *fakeOutput) Ptr() uintptr                    { return uintptr(unsafe.Pointer(o)) }
func (o *fakeOutput) Release()                        { o.released = true }

type fakeAdapter struct {
	desc     d3d12.AdapterDesc1
	outputs  []*fakeOutput
	released bool
}

func (a *fakeAdapter) Desc1() (d3d12.AdapterDesc1, error) { return a.desc, nil }

func (a *fakeAdapter) EnumOutput(index uint32) (d3d12.Output, bool, error) {
	if int(index) >= len(a.outputs) {
		return nil, false, nil
	}
	return a.outputs[index], true, nil
}

func (a *fakeAdapter) Ptr() uintptr { return uintptr(unsafe.Pointer(a)) }
func (a *fakeAdapter) Release()     { a.released = true }

type fakeFactory struct {
	adapters []*fakeAdapter
	released bool
}

func (f *fakeFactory) EnumAdapter(index uint32) (d3d12.Adapter, bool, error) {
	if int(index) >= len(f.adapters) {
		return nil, false, nil
	}
	return f.adapters[index], true, nil
}

func (f *fakeFactory) Release() { f.released = true }

func newFakeAdapter(vendorID, deviceID uint32, description string, outputs ...*fakeOutput) *fakeAdapter {
	a := &fakeAdapter{outputs: outputs}
	a.desc.VendorID = vendorID
	a.desc.DeviceID = deviceID
	copy(a.desc.Description[:], utf16.Encode([]rune(description)))
	return a
}

func attachedOutput(name string) *fakeOutput {
	o := &fakeOutput{}
	o.desc.AttachedToDesktop = 1
	copy(o.desc.DeviceName[:], utf16.Encode([]rune(name)))
	return o
}

func detachedOutput() *fakeOutput {
	return &fakeOutput{}
}

// fakeBackend yields pre-seeded per-slot frames.
type fakeBackend struct {
	frames     map[int]*fakeResource
	syncResult capture.Result
	captures   []int
	pointer    PointerSink
	initErr    error
	inits      int
	deinits    int
	freed      bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{frames: map[int]*fakeResource{}, syncResult: capture.ResultOK}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Init(device d3d12.Device, adapter d3d12.Adapter,
	output d3d12.Output, pointer PointerSink) error {
	if b.initErr != nil {
		return b.initErr
	}
	b.inits++
	b.pointer = pointer
	return nil
}

func (b *fakeBackend) Capture(slot int) capture.Result {
	b.captures = append(b.captures, slot)
	return capture.ResultOK
}

func (b *fakeBackend) Fetch(slot int) d3d12.Resource {
	r, ok := b.frames[slot]
	if !ok {
		return nil
	}
	return r
}

func (b *fakeBackend) Sync(queue d3d12.CommandQueue) capture.Result { return b.syncResult }
func (b *fakeBackend) Deinit() error                               { b.deinits++; return nil }
func (b *fakeBackend) Free()                                       { b.freed = true }

func (b *fakeBackend) setFrame(slot int, width, height uint32) *fakeResource {
	r := &fakeResource{desc: d3d12.ResourceDesc{
		Dimension: d3d12.ResourceDimensionTexture2D,
		Width:     uint64(width),
		Height:    height,
		Format:    d3d12.FormatB8G8R8A8Unorm,
	}}
	b.frames[slot] = r
	return r
}
