// Package d3d12 provides minimal pure-Go bindings for the D3D12 and DXGI
// surfaces the frame export pipeline needs: factory/adapter/output
// enumeration, device and copy-queue creation, heap import from an existing
// address, placed buffer resources, and a reusable copy command group.
//
// The struct and constant definitions mirror the Windows SDK layouts and are
// kept free of build tags so the pipeline logic that consumes them stays
// portable and testable.
package d3d12

import "unicode/utf16"

// utf16String decodes a NUL-terminated UTF-16 buffer.
func utf16String(buf []uint16) string {
	for i, v := range buf {
		if v == 0 {
			buf = buf[:i]
			break
		}
	}
	return string(utf16.Decode(buf))
}

// Feature levels.
const (
	FeatureLevel11_0 = 0xb000
	FeatureLevel12_0 = 0xc000
)

// Command list types (D3D12_COMMAND_LIST_TYPE).
const (
	CommandListTypeDirect  = 0
	CommandListTypeCompute = 2
	CommandListTypeCopy    = 3
)

// Command queue priorities (D3D12_COMMAND_QUEUE_PRIORITY).
const (
	QueuePriorityNormal         = 0
	QueuePriorityHigh           = 100
	QueuePriorityGlobalRealtime = 10000
)

// Resource dimensions (D3D12_RESOURCE_DIMENSION).
const (
	ResourceDimensionBuffer    = 1
	ResourceDimensionTexture2D = 3
)

// Texture layouts (D3D12_TEXTURE_LAYOUT).
const (
	TextureLayoutUnknown  = 0
	TextureLayoutRowMajor = 1
)

// Resource flags (D3D12_RESOURCE_FLAGS).
const (
	ResourceFlagNone              = 0
	ResourceFlagAllowCrossAdapter = 0x10
)

// Resource states (D3D12_RESOURCE_STATES).
const (
	ResourceStateCommon     = 0
	ResourceStateCopyDest   = 0x400
	ResourceStateCopySource = 0x800
)

// Texture copy location types (D3D12_TEXTURE_COPY_TYPE).
const (
	CopyTypeSubresourceIndex = 0
	CopyTypePlacedFootprint  = 1
)

// DefaultResourcePlacementAlignment is
// D3D12_DEFAULT_RESOURCE_PLACEMENT_ALIGNMENT (64 KiB).
const DefaultResourcePlacementAlignment = 0x10000

// DXGI pixel formats.
const (
	FormatUnknown       = 0
	FormatB8G8R8A8Unorm = 87
)

// DXGI HRESULT codes surfaced by enumeration and capture paths.
const (
	DXGIErrNotFound      = 0x887A0002
	DXGIErrWaitTimeout   = 0x887A0027
	DXGIErrAccessLost    = 0x887A0026
	DXGIErrDeviceRemoved = 0x887A0005
	DXGIErrDeviceReset   = 0x887A0007
)

// Luid matches the Windows LUID structure.
type Luid struct {
	LowPart  uint32
	HighPart int32
}

// AdapterDesc1 matches DXGI_ADAPTER_DESC1.
type AdapterDesc1 struct {
	Description           [128]uint16
	VendorID              uint32
	DeviceID              uint32
	SubSysID              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLuid           Luid
	Flags                 uint32
}

// DescriptionString decodes the adapter's UTF-16 description.
func (d *AdapterDesc1) DescriptionString() string {
	return utf16String(d.Description[:])
}

// Rect matches the Windows RECT structure.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// OutputDesc matches DXGI_OUTPUT_DESC.
type OutputDesc struct {
	DeviceName         [32]uint16
	DesktopCoordinates Rect
	AttachedToDesktop  int32 // BOOL
	Rotation           uint32
	Monitor            uintptr
}

// DeviceNameString decodes the output's UTF-16 device name.
func (d *OutputDesc) DeviceNameString() string {
	return utf16String(d.DeviceName[:])
}

// CommandQueueDesc matches D3D12_COMMAND_QUEUE_DESC.
type CommandQueueDesc struct {
	Type     int32
	Priority int32
	Flags    uint32
	NodeMask uint32
}

// HeapProperties matches D3D12_HEAP_PROPERTIES.
type HeapProperties struct {
	Type                 int32
	CPUPageProperty      int32
	MemoryPoolPreference int32
	CreationNodeMask     uint32
	VisibleNodeMask      uint32
}

// HeapDesc matches D3D12_HEAP_DESC.
type HeapDesc struct {
	SizeInBytes uint64
	Properties  HeapProperties
	Alignment   uint64
	Flags       uint32
}

// SampleDesc matches DXGI_SAMPLE_DESC.
type SampleDesc struct {
	Count   uint32
	Quality uint32
}

// ResourceDesc matches D3D12_RESOURCE_DESC.
type ResourceDesc struct {
	Dimension        int32
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           uint32
	SampleDesc       SampleDesc
	Layout           int32
	Flags            uint32
}

// SubresourceFootprint matches D3D12_SUBRESOURCE_FOOTPRINT.
type SubresourceFootprint struct {
	Format   uint32
	Width    uint32
	Height   uint32
	Depth    uint32
	RowPitch uint32
}

// PlacedSubresourceFootprint matches D3D12_PLACED_SUBRESOURCE_FOOTPRINT.
type PlacedSubresourceFootprint struct {
	Offset    uint64
	Footprint SubresourceFootprint
}

// TextureCopyLocation matches D3D12_TEXTURE_COPY_LOCATION. The C definition
// holds a union of PlacedFootprint and SubresourceIndex; the index occupies
// the first dword of the footprint's Offset, which the constructors below
// take care of.
type TextureCopyLocation struct {
	Resource        uintptr
	Type            int32
	_               uint32
	PlacedFootprint PlacedSubresourceFootprint
}

// SubresourceCopyLocation describes a copy source addressed by subresource
// index.
func SubresourceCopyLocation(resource uintptr, index uint32) TextureCopyLocation {
	loc := TextureCopyLocation{
		Resource: resource,
		Type:     CopyTypeSubresourceIndex,
	}
	loc.PlacedFootprint.Offset = uint64(index) // union low dword
	return loc
}

// FootprintCopyLocation describes a copy destination addressed by a placed
// footprint within a buffer resource.
func FootprintCopyLocation(resource uintptr, offset uint64, fp SubresourceFootprint) TextureCopyLocation {
	return TextureCopyLocation{
		Resource: resource,
		Type:     CopyTypePlacedFootprint,
		PlacedFootprint: PlacedSubresourceFootprint{
			Offset:    offset,
			Footprint: fp,
		},
	}
}
