//go:build windows

package d3d12

import (
	"syscall"

	"github.com/go-ole/go-ole"
)

var (
	d3d12DLL = syscall.NewLazyDLL("d3d12.dll")
	dxgiDLL  = syscall.NewLazyDLL("dxgi.dll")

	procD3D12CreateDevice      = d3d12DLL.NewProc("D3D12CreateDevice")
	procD3D12GetDebugInterface = d3d12DLL.NewProc("D3D12GetDebugInterface")
	procCreateDXGIFactory2     = dxgiDLL.NewProc("CreateDXGIFactory2")
)

// COM interface IDs.
var (
	iidIDXGIFactory2             = ole.NewGUID("{50C83A1C-E072-4C48-87B0-3630FA36A6D0}")
	iidIDXGIAdapter1             = ole.NewGUID("{29038F61-3839-4626-91FD-086879011A05}")
	iidIDXGIOutput               = ole.NewGUID("{AE02EEDB-C735-4690-8D52-5A8DC20213AA}")
	iidID3D12Device3             = ole.NewGUID("{81DADC15-2BAD-4392-93C5-101345C4AA98}")
	iidID3D12CommandQueue        = ole.NewGUID("{0EC870A6-5D7E-4C22-8CFC-5BAAE07616ED}")
	iidID3D12CommandAllocator    = ole.NewGUID("{6102DEE4-AF59-4B09-B999-B44D73F09B24}")
	iidID3D12GraphicsCommandList = ole.NewGUID("{5B160D0F-AC1B-4185-8BA8-B3AE42A5A455}")
	iidID3D12Heap                = ole.NewGUID("{6B3B2502-6E51-45B3-90EE-9884265E8DF3}")
	iidID3D12Resource            = ole.NewGUID("{696442BE-A72E-4059-BC79-5B5C98040FAD}")
	iidID3D12Fence               = ole.NewGUID("{0A753DCF-C4D8-4B91-ADF6-BE5A60D95A76}")
	iidID3D12Debug1              = ole.NewGUID("{AFFAA4CA-63FE-4D8E-B8AD-159000AF4304}")
)

// DXGI factory creation flags.
const dxgiCreateFactoryDebug = 0x1

// ID3D12Device3 vtable indices. IUnknown 0-2, ID3D12Object 3-6.
const (
	d3d12DeviceCreateCommandQueue          = 8
	d3d12DeviceCreateCommandAllocator      = 9
	d3d12DeviceCreateCommandList           = 12
	d3d12DeviceCreatePlacedResource        = 29
	d3d12DeviceOpenSharedHandle            = 32
	d3d12DeviceCreateFence                 = 36
	d3d12DeviceOpenExistingHeapFromAddress = 47 // ID3D12Device3
)

// ID3D12CommandQueue vtable indices (after ID3D12Pageable).
const (
	d3d12QueueExecuteCommandLists = 10
	d3d12QueueSignal              = 14
	d3d12QueueWait                = 15
)

// ID3D12Heap vtable indices.
const d3d12HeapGetDesc = 8

// ID3D12Resource vtable indices.
const d3d12ResourceGetDesc = 10

// ID3D12CommandAllocator vtable indices.
const d3d12AllocatorReset = 8

// ID3D12GraphicsCommandList vtable indices (after ID3D12CommandList).
const (
	d3d12ListClose             = 9
	d3d12ListReset             = 10
	d3d12ListCopyTextureRegion = 16
)

// ID3D12Fence vtable indices (after ID3D12Pageable).
const (
	d3d12FenceGetCompletedValue    = 8
	d3d12FenceSetEventOnCompletion = 9
)

// ID3D12Debug1 vtable indices (inherits IUnknown only).
const (
	d3d12Debug1EnableDebugLayer                    = 3
	d3d12Debug1SetEnableGPUBasedValidation         = 4
	d3d12Debug1SetEnableSyncCommandQueueValidation = 5
)

// IDXGIFactory1 vtable indices (IDXGIObject 3-6, IDXGIFactory 7-11).
const dxgiFactoryEnumAdapters1 = 12

// IDXGIAdapter1 vtable indices.
const (
	dxgiAdapterEnumOutputs = 7
	dxgiAdapterGetDesc1    = 10
)

// IDXGIOutput vtable indices.
const dxgiOutputGetDesc = 7
