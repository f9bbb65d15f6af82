//go:build windows

package d3d12

import (
	"unsafe"
)

// CreateDevice creates an ID3D12Device3 on the given adapter at the minimum
// feature level.
func CreateDevice(adapter Adapter, minFeatureLevel uint32) (Device, error) {
	var obj uintptr
	hr, _, _ := procD3D12CreateDevice.Call(
		adapter.Ptr(),
		uintptr(minFeatureLevel),
		uintptr(unsafe.Pointer(iidID3D12Device3)),
		uintptr(unsafe.Pointer(&obj)),
	)
	if int32(hr) < 0 {
		return nil, hrErr("D3D12CreateDevice", hr)
	}
	return &device{obj: obj}, nil
}

type device struct {
	obj uintptr
}

func (d *device) CreateCommandQueue(desc *CommandQueueDesc) (CommandQueue, error) {
	var obj uintptr
	if _, err := comCall(d.obj, d3d12DeviceCreateCommandQueue,
		uintptr(unsafe.Pointer(desc)),
		uintptr(unsafe.Pointer(iidID3D12CommandQueue)),
		uintptr(unsafe.Pointer(&obj)),
	); err != nil {
		return nil, err
	}
	return &commandQueue{obj: obj}, nil
}

func (d *device) OpenExistingHeapFromAddress(base unsafe.Pointer) (Heap, error) {
	var obj uintptr
	if _, err := comCall(d.obj, d3d12DeviceOpenExistingHeapFromAddress,
		uintptr(base),
		uintptr(unsafe.Pointer(iidID3D12Heap)),
		uintptr(unsafe.Pointer(&obj)),
	); err != nil {
		return nil, err
	}
	return &heap{obj: obj}, nil
}

func (d *device) CreatePlacedResource(h Heap, offset uint64, desc *ResourceDesc, initialState uint32) (Resource, error) {
	var obj uintptr
	if _, err := comCall(d.obj, d3d12DeviceCreatePlacedResource,
		h.Ptr(),
		uintptr(offset),
		uintptr(unsafe.Pointer(desc)),
		uintptr(initialState),
		0, // pOptimizedClearValue
		uintptr(unsafe.Pointer(iidID3D12Resource)),
		uintptr(unsafe.Pointer(&obj)),
	); err != nil {
		return nil, err
	}
	return &resource{obj: obj}, nil
}

func (d *device) OpenSharedResource(handle uintptr) (Resource, error) {
	var obj uintptr
	if _, err := comCall(d.obj, d3d12DeviceOpenSharedHandle,
		handle,
		uintptr(unsafe.Pointer(iidID3D12Resource)),
		uintptr(unsafe.Pointer(&obj)),
	); err != nil {
		return nil, err
	}
	return &resource{obj: obj}, nil
}

func (d *device) OpenSharedFence(handle uintptr) (Fence, error) {
	var obj uintptr
	if _, err := comCall(d.obj, d3d12DeviceOpenSharedHandle,
		handle,
		uintptr(unsafe.Pointer(iidID3D12Fence)),
		uintptr(unsafe.Pointer(&obj)),
	); err != nil {
		return nil, err
	}
	return &fence{obj: obj}, nil
}

func (d *device) Ptr() uintptr { return d.obj }

func (d *device) Release() {
	comRelease(d.obj)
	d.obj = 0
}

type commandQueue struct {
	obj uintptr
}

func (q *commandQueue) SetName(name string) {
	setName(q.obj, name)
}

func (q *commandQueue) Wait(f Fence, value uint64) error {
	if _, err := comCall(q.obj, d3d12QueueWait, f.Ptr(), uintptr(value)); err != nil {
		return err
	}
	return nil
}

func (q *commandQueue) signal(f *fence, value uint64) error {
	if _, err := comCall(q.obj, d3d12QueueSignal, f.obj, uintptr(value)); err != nil {
		return err
	}
	return nil
}

func (q *commandQueue) executeCommandLists(lists []uintptr) {
	comCallNoHR(q.obj, d3d12QueueExecuteCommandLists,
		uintptr(len(lists)),
		uintptr(unsafe.Pointer(&lists[0])),
	)
}

func (q *commandQueue) Ptr() uintptr { return q.obj }

func (q *commandQueue) Release() {
	comRelease(q.obj)
	q.obj = 0
}

type heap struct {
	obj uintptr
}

func (h *heap) Desc() (HeapDesc, error) {
	// GetDesc returns the struct by value; the ABI passes a hidden result
	// pointer as the first argument.
	var desc HeapDesc
	comCallNoHR(h.obj, d3d12HeapGetDesc, uintptr(unsafe.Pointer(&desc)))
	return desc, nil
}

func (h *heap) Ptr() uintptr { return h.obj }

func (h *heap) Release() {
	comRelease(h.obj)
	h.obj = 0
}

type resource struct {
	obj uintptr
}

func (r *resource) Desc() (ResourceDesc, error) {
	var desc ResourceDesc
	comCallNoHR(r.obj, d3d12ResourceGetDesc, uintptr(unsafe.Pointer(&desc)))
	return desc, nil
}

func (r *resource) Ptr() uintptr { return r.obj }

func (r *resource) AddRef() { comAddRef(r.obj) }

// Release drops one COM reference. Resources are shared between the slot
// cache and in-flight copies, so the wrapper keeps its pointer; the COM
// reference count governs the object's lifetime.
func (r *resource) Release() {
	comRelease(r.obj)
}

type fence struct {
	obj uintptr
}

func (f *fence) Ptr() uintptr { return f.obj }

func (f *fence) Release() {
	comRelease(f.obj)
	f.obj = 0
}

func (f *fence) setEventOnCompletion(value uint64, event uintptr) error {
	if _, err := comCall(f.obj, d3d12FenceSetEventOnCompletion,
		uintptr(value), event); err != nil {
		return err
	}
	return nil
}

func (d *device) createFence(initial uint64, flags uint32) (*fence, error) {
	var obj uintptr
	if _, err := comCall(d.obj, d3d12DeviceCreateFence,
		uintptr(initial),
		uintptr(flags),
		uintptr(unsafe.Pointer(iidID3D12Fence)),
		uintptr(unsafe.Pointer(&obj)),
	); err != nil {
		return nil, err
	}
	return &fence{obj: obj}, nil
}
