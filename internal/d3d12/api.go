package d3d12

import "unsafe"

// The interfaces below are the narrow surface the capture pipeline consumes.
// On Windows they are backed by COM vtable calls; tests substitute fakes.

// Factory enumerates GPU adapters (IDXGIFactory2).
type Factory interface {
	// EnumAdapter returns the adapter at index, or found=false once the
	// enumeration is exhausted.
	EnumAdapter(index uint32) (adapter Adapter, found bool, err error)
	Release()
}

// Adapter is one GPU device candidate (IDXGIAdapter1).
type Adapter interface {
	Desc1() (AdapterDesc1, error)
	// EnumOutput returns the display output at index, or found=false once
	// the enumeration is exhausted.
	EnumOutput(index uint32) (output Output, found bool, err error)
	// Ptr exposes the underlying COM pointer for device creation.
	Ptr() uintptr
	Release()
}

// Output is a display output attached to an adapter (IDXGIOutput).
type Output interface {
	Desc() (OutputDesc, error)
	Ptr() uintptr
	Release()
}

// Device is the logical GPU device (ID3D12Device3).
type Device interface {
	CreateCommandQueue(desc *CommandQueueDesc) (CommandQueue, error)
	// CreateCommandGroup bundles a command allocator, a reusable command
	// list and the fence used to await execution.
	CreateCommandGroup(listType int32, name string) (CommandGroup, error)
	OpenExistingHeapFromAddress(base unsafe.Pointer) (Heap, error)
	CreatePlacedResource(heap Heap, offset uint64, desc *ResourceDesc, initialState uint32) (Resource, error)
	// OpenSharedResource imports a resource shared from another API or
	// device via an NT handle.
	OpenSharedResource(handle uintptr) (Resource, error)
	// OpenSharedFence imports a fence shared from another API or device.
	OpenSharedFence(handle uintptr) (Fence, error)
	Ptr() uintptr
	Release()
}

// Heap is a GPU-addressable memory pool (ID3D12Heap).
type Heap interface {
	Desc() (HeapDesc, error)
	Ptr() uintptr
	Release()
}

// Resource is a GPU buffer or texture (ID3D12Resource).
type Resource interface {
	Desc() (ResourceDesc, error)
	Ptr() uintptr
	AddRef()
	Release()
}

// CommandQueue is a GPU command queue (ID3D12CommandQueue).
type CommandQueue interface {
	SetName(name string)
	// Wait queues a GPU-side wait until fence reaches value.
	Wait(fence Fence, value uint64) error
	Ptr() uintptr
	Release()
}

// Fence is a GPU synchronization fence (ID3D12Fence).
type Fence interface {
	Ptr() uintptr
	Release()
}

// CommandGroup is a reusable, re-recordable batch of copy commands with its
// own allocator and completion fence.
type CommandGroup interface {
	// CopyTextureRegion records a texture copy into the group's list.
	CopyTextureRegion(dst, src *TextureCopyLocation)
	// Execute closes the list, submits it to queue, waits for completion
	// and resets the group for re-recording.
	Execute(queue CommandQueue) error
	Release()
}
