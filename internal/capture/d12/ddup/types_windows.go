//go:build windows

package ddup

import (
	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	modD3D11              = windows.NewLazySystemDLL("d3d11.dll")
	procD3D11CreateDevice = modD3D11.NewProc("D3D11CreateDevice")
)

var (
	iidID3D11Device5        = ole.NewGUID("{8ffde202-a0e7-45df-9e01-e837801b5ea0}")
	iidID3D11DeviceContext4 = ole.NewGUID("{917600da-f58c-4c33-98d8-3e15b390fa24}")
	iidID3D11Fence          = ole.NewGUID("{affde9d1-1df7-4bb7-8a34-0f46251dab80}")
	iidID3D11Resource       = ole.NewGUID("{dc8e63f3-d12b-4952-b47b-5e45026a862d}")
	iidIDXGIOutput1         = ole.NewGUID("{00cddea8-939b-4b83-a340-a685226666cc}")
	iidIDXGIResource1       = ole.NewGUID("{30961379-4609-4a41-998e-54fe567ee0c1}")
)

// Vtable method indices.
const (
	// ID3D11Device
	d3d11DeviceCreateTexture2D     = 5
	d3d11DeviceGetImmediateContext = 40
	// ID3D11Device5
	d3d11Device5CreateFence = 68

	// ID3D11DeviceContext
	d3d11ContextCopyResource = 47
	d3d11ContextFlush        = 111
	// ID3D11DeviceContext4
	d3d11Context4Signal = 147

	// ID3D11Fence (ID3D11DeviceChild + 0..)
	d3d11FenceCreateSharedHandle = 7

	// IDXGIOutput1
	dxgiOutput1DuplicateOutput = 22

	// IDXGIOutputDuplication
	dxgiDuplGetDesc              = 7
	dxgiDuplAcquireNextFrame     = 8
	dxgiDuplGetFramePointerShape = 11
	dxgiDuplReleaseFrame         = 14

	// IDXGIResource1
	dxgiResource1CreateSharedHandle = 13
)

// D3D11 creation constants.
const (
	d3dDriverTypeUnknown = 0
	d3d11SDKVersion      = 7

	d3dFeatureLevel11_1 = 0xb100
	d3dFeatureLevel11_0 = 0xb000

	d3d11UsageDefault               = 0
	d3d11BindShaderResource         = 0x8
	d3d11BindRenderTarget           = 0x20
	d3d11ResourceMiscShared         = 0x2
	d3d11ResourceMiscSharedNTHandle = 0x800

	d3d11FenceFlagShared = 0x2
)

// DXGI duplication pointer shape types.
const (
	dxgiPointerShapeMonochrome  = 1
	dxgiPointerShapeColor       = 2
	dxgiPointerShapeMaskedColor = 4
)

// Shared handle access rights.
const (
	dxgiSharedResourceRead  = 0x80000000
	dxgiSharedResourceWrite = 0x1
	genericAll              = 0x10000000
)

type point struct {
	X, Y int32
}

// rational matches DXGI_RATIONAL.
type rational struct {
	Numerator   uint32
	Denominator uint32
}

// modeDesc matches DXGI_MODE_DESC.
type modeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRate      rational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

// duplDesc matches DXGI_OUTDUPL_DESC.
type duplDesc struct {
	ModeDesc                   modeDesc
	Rotation                   uint32
	DesktopImageInSystemMemory int32
}

// duplPointerPosition matches DXGI_OUTDUPL_POINTER_POSITION.
type duplPointerPosition struct {
	Position point
	Visible  int32
}

// duplFrameInfo matches DXGI_OUTDUPL_FRAME_INFO.
type duplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPosition           duplPointerPosition
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

// duplPointerShapeInfo matches DXGI_OUTDUPL_POINTER_SHAPE_INFO.
type duplPointerShapeInfo struct {
	Type    uint32
	Width   uint32
	Height  uint32
	Pitch   uint32
	HotSpot point
}

// texture2DDesc matches D3D11_TEXTURE2D_DESC.
type texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleDesc     struct{ Count, Quality uint32 }
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}
