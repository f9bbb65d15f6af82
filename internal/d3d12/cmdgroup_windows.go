//go:build windows

package d3d12

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// commandGroup bundles a command allocator, a reusable graphics command
// list and the fence/event pair used to await execution. The list is left
// open and ready to record; Execute closes, submits, waits and re-opens it.
type commandGroup struct {
	allocator  uintptr
	list       uintptr
	fence      *fence
	event      windows.Handle
	fenceValue uint64
}

func (d *device) CreateCommandGroup(listType int32, name string) (CommandGroup, error) {
	g := &commandGroup{}
	ok := false
	defer func() {
		if !ok {
			g.Release()
		}
	}()

	if _, err := comCall(d.obj, d3d12DeviceCreateCommandAllocator,
		uintptr(listType),
		uintptr(unsafe.Pointer(iidID3D12CommandAllocator)),
		uintptr(unsafe.Pointer(&g.allocator)),
	); err != nil {
		return nil, fmt.Errorf("create %s command allocator: %w", name, err)
	}
	setName(g.allocator, name+" Command Allocator")

	if _, err := comCall(d.obj, d3d12DeviceCreateCommandList,
		0, // nodeMask
		uintptr(listType),
		g.allocator,
		0, // pInitialState
		uintptr(unsafe.Pointer(iidID3D12GraphicsCommandList)),
		uintptr(unsafe.Pointer(&g.list)),
	); err != nil {
		return nil, fmt.Errorf("create %s command list: %w", name, err)
	}
	setName(g.list, name+" Command List")

	f, err := d.createFence(0, 0)
	if err != nil {
		return nil, fmt.Errorf("create %s fence: %w", name, err)
	}
	g.fence = f

	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s fence event: %w", name, err)
	}
	g.event = event

	ok = true
	return g, nil
}

func (g *commandGroup) CopyTextureRegion(dst, src *TextureCopyLocation) {
	comCallNoHR(g.list, d3d12ListCopyTextureRegion,
		uintptr(unsafe.Pointer(dst)),
		0, 0, 0, // DstX, DstY, DstZ
		uintptr(unsafe.Pointer(src)),
		0, // pSrcBox
	)
}

func (g *commandGroup) Execute(q CommandQueue) error {
	queue, ok := q.(*commandQueue)
	if !ok {
		return fmt.Errorf("command group: incompatible queue type %T", q)
	}

	if _, err := comCall(g.list, d3d12ListClose); err != nil {
		return fmt.Errorf("close command list: %w", err)
	}

	lists := []uintptr{g.list}
	queue.executeCommandLists(lists)

	// Wait for completion before resetting: the allocator cannot be reset
	// while the GPU may still be reading recorded commands.
	g.fenceValue++
	if err := queue.signal(g.fence, g.fenceValue); err != nil {
		return fmt.Errorf("signal fence: %w", err)
	}
	if err := g.fence.setEventOnCompletion(g.fenceValue, uintptr(g.event)); err != nil {
		return fmt.Errorf("arm fence event: %w", err)
	}
	if _, err := windows.WaitForSingleObject(g.event, windows.INFINITE); err != nil {
		return fmt.Errorf("wait for copy completion: %w", err)
	}

	if _, err := comCall(g.allocator, d3d12AllocatorReset); err != nil {
		return fmt.Errorf("reset command allocator: %w", err)
	}
	if _, err := comCall(g.list, d3d12ListReset, g.allocator, 0); err != nil {
		return fmt.Errorf("reset command list: %w", err)
	}
	return nil
}

func (g *commandGroup) Release() {
	if g.event != 0 {
		windows.CloseHandle(g.event)
		g.event = 0
	}
	if g.fence != nil {
		g.fence.Release()
		g.fence = nil
	}
	if g.list != 0 {
		comRelease(g.list)
		g.list = 0
	}
	if g.allocator != 0 {
		comRelease(g.allocator)
		g.allocator = 0
	}
}
