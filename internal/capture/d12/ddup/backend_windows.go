//go:build windows

package ddup

import (
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/capture/d12"
	"github.com/framelink/host/internal/d3d12"
	"github.com/framelink/host/internal/logging"
)

func init() {
	d12.RegisterBackend(Name, New)
}

// New constructs an uninitialized Desktop Duplication backend.
func New(slotCount int, debug bool) (d12.Backend, error) {
	if slotCount < 1 {
		return nil, fmt.Errorf("ddup: slot count %d out of range", slotCount)
	}
	return &backend{
		log:   logging.L("capture.ddup"),
		debug: debug,
		slots: make([]ddSlot, slotCount),
	}, nil
}

// ddSlot is one shared frame texture: written by the D3D11 copy, read by
// the pipeline's D3D12 copy queue.
type ddSlot struct {
	texture  uintptr // ID3D11Texture2D
	resource d3d12.Resource
	written  bool
}

func (s *ddSlot) release() {
	if s.resource != nil {
		s.resource.Release()
	}
	comRelease(s.texture)
	*s = ddSlot{}
}

type backend struct {
	log   *slog.Logger
	debug bool

	device  uintptr // ID3D11Device5
	context uintptr // ID3D11DeviceContext4
	dupl    uintptr // IDXGIOutputDuplication

	fence      uintptr // ID3D11Fence, shared with the D3D12 device
	d12Fence   d3d12.Fence
	fenceValue uint64

	width  uint32
	height uint32
	format uint32

	pointer  d12.PointerSink
	shapeBuf []byte

	slots []ddSlot
}

var _ d12.Backend = (*backend)(nil)

func (b *backend) Name() string { return Name }

func (b *backend) Init(device d3d12.Device, adapter d3d12.Adapter,
	output d3d12.Output, pointer d12.PointerSink) error {

	b.pointer = pointer
	ok := false
	defer func() {
		if !ok {
			b.releaseAll()
		}
	}()

	if err := b.createDevice(adapter); err != nil {
		return err
	}
	if err := b.duplicateOutput(output); err != nil {
		return err
	}
	if err := b.createSharedFence(device); err != nil {
		return err
	}
	for i := range b.slots {
		if err := b.createSlot(device, i); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}

	b.log.Info("desktop duplication ready",
		slog.Uint64("width", uint64(b.width)),
		slog.Uint64("height", uint64(b.height)),
		slog.Int("slots", len(b.slots)))
	ok = true
	return nil
}

const d3d11CreateDeviceDebug = 0x2

func (b *backend) createDevice(adapter d3d12.Adapter) error {
	var flags uint32
	if b.debug {
		flags |= d3d11CreateDeviceDebug
	}

	levels := []uint32{d3dFeatureLevel11_1, d3dFeatureLevel11_0}
	var (
		dev   uintptr
		ctx   uintptr
		level uint32
	)
	hr, _, _ := procD3D11CreateDevice.Call(
		adapter.Ptr(),
		d3dDriverTypeUnknown,
		0, // Software
		uintptr(flags),
		uintptr(unsafe.Pointer(&levels[0])),
		uintptr(len(levels)),
		d3d11SDKVersion,
		uintptr(unsafe.Pointer(&dev)),
		uintptr(unsafe.Pointer(&level)),
		uintptr(unsafe.Pointer(&ctx)),
	)
	if int32(hr) < 0 {
		return fmt.Errorf("D3D11CreateDevice: 0x%08X", uint32(hr))
	}

	// the fence and shared texture paths need the 11.4 interfaces
	dev5, err := comQueryInterface(dev, iidID3D11Device5)
	comRelease(dev)
	if err != nil {
		comRelease(ctx)
		return fmt.Errorf("query ID3D11Device5: %w", err)
	}
	ctx4, err := comQueryInterface(ctx, iidID3D11DeviceContext4)
	comRelease(ctx)
	if err != nil {
		comRelease(dev5)
		return fmt.Errorf("query ID3D11DeviceContext4: %w", err)
	}

	b.device = dev5
	b.context = ctx4
	return nil
}

func (b *backend) duplicateOutput(output d3d12.Output) error {
	output1, err := comQueryInterface(output.Ptr(), iidIDXGIOutput1)
	if err != nil {
		return fmt.Errorf("query IDXGIOutput1: %w", err)
	}
	defer comRelease(output1)

	var dupl uintptr
	if _, err := comCall(output1, dxgiOutput1DuplicateOutput,
		b.device,
		uintptr(unsafe.Pointer(&dupl)),
	); err != nil {
		return fmt.Errorf("duplicate output: %w", err)
	}
	b.dupl = dupl

	var desc duplDesc
	comCallNoHR(b.dupl, dxgiDuplGetDesc, uintptr(unsafe.Pointer(&desc)))
	b.width = desc.ModeDesc.Width
	b.height = desc.ModeDesc.Height
	b.format = desc.ModeDesc.Format
	if b.format != d3d12.FormatB8G8R8A8Unorm {
		b.log.Warn("unexpected duplication format",
			slog.Uint64("format", uint64(b.format)))
	}
	return nil
}

func (b *backend) createSharedFence(device d3d12.Device) error {
	var fence uintptr
	if _, err := comCall(b.device, d3d11Device5CreateFence,
		0, // InitialValue
		d3d11FenceFlagShared,
		uintptr(unsafe.Pointer(iidID3D11Fence)),
		uintptr(unsafe.Pointer(&fence)),
	); err != nil {
		return fmt.Errorf("create shared fence: %w", err)
	}
	b.fence = fence

	var handle windows.Handle
	if _, err := comCall(b.fence, d3d11FenceCreateSharedHandle,
		0, // pAttributes
		genericAll,
		0, // Name
		uintptr(unsafe.Pointer(&handle)),
	); err != nil {
		return fmt.Errorf("share fence: %w", err)
	}
	defer windows.CloseHandle(handle)

	d12Fence, err := device.OpenSharedFence(uintptr(handle))
	if err != nil {
		return fmt.Errorf("import fence: %w", err)
	}
	b.d12Fence = d12Fence
	return nil
}

func (b *backend) createSlot(device d3d12.Device, slot int) error {
	desc := texture2DDesc{
		Width:     b.width,
		Height:    b.height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    b.format,
		Usage:     d3d11UsageDefault,
		BindFlags: d3d11BindRenderTarget | d3d11BindShaderResource,
		MiscFlags: d3d11ResourceMiscShared | d3d11ResourceMiscSharedNTHandle,
	}
	desc.SampleDesc.Count = 1

	var texture uintptr
	if _, err := comCall(b.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&texture)),
	); err != nil {
		return fmt.Errorf("create shared texture: %w", err)
	}
	b.slots[slot].texture = texture

	res1, err := comQueryInterface(texture, iidIDXGIResource1)
	if err != nil {
		return fmt.Errorf("query IDXGIResource1: %w", err)
	}
	var handle windows.Handle
	_, err = comCall(res1, dxgiResource1CreateSharedHandle,
		0, // pAttributes
		dxgiSharedResourceRead|dxgiSharedResourceWrite,
		0, // Name
		uintptr(unsafe.Pointer(&handle)),
	)
	comRelease(res1)
	if err != nil {
		return fmt.Errorf("share texture: %w", err)
	}
	defer windows.CloseHandle(handle)

	resource, err := device.OpenSharedResource(uintptr(handle))
	if err != nil {
		return fmt.Errorf("import texture: %w", err)
	}
	b.slots[slot].resource = resource
	return nil
}

// Capture acquires the next desktop frame, copies it into the slot's
// shared texture and forwards any cursor update.
func (b *backend) Capture(slot int) capture.Result {
	var (
		info     duplFrameInfo
		frameRes uintptr
	)
	hr, err := comCall(b.dupl, dxgiDuplAcquireNextFrame,
		1000, // ms
		uintptr(unsafe.Pointer(&info)),
		uintptr(unsafe.Pointer(&frameRes)),
	)
	if err != nil {
		switch uint32(hr) {
		case d3d12.DXGIErrWaitTimeout:
			return capture.ResultTimeout
		case d3d12.DXGIErrAccessLost, d3d12.DXGIErrDeviceRemoved, d3d12.DXGIErrDeviceReset:
			b.log.Warn("duplication lost, reinit required",
				slog.String(logging.KeyHResult, fmt.Sprintf("0x%08X", uint32(hr))))
			return capture.ResultReinit
		default:
			b.log.Error("acquire frame failed",
				slog.String(logging.KeyHResult, fmt.Sprintf("0x%08X", uint32(hr))))
			return capture.ResultError
		}
	}
	defer func() {
		comRelease(frameRes)
		comCallNoHR(b.dupl, dxgiDuplReleaseFrame)
	}()

	if info.LastPresentTime != 0 || info.AccumulatedFrames > 0 {
		if result := b.copyFrame(slot, frameRes); result != capture.ResultOK {
			return result
		}
	}
	if info.LastMouseUpdateTime != 0 {
		b.forwardPointer(&info)
	}
	return capture.ResultOK
}

func (b *backend) copyFrame(slot int, frameRes uintptr) capture.Result {
	src, err := comQueryInterface(frameRes, iidID3D11Resource)
	if err != nil {
		b.log.Error("acquired frame is not a D3D11 resource",
			slog.String(logging.KeyError, err.Error()))
		return capture.ResultError
	}
	defer comRelease(src)

	comCallNoHR(b.context, d3d11ContextCopyResource, b.slots[slot].texture, src)

	b.fenceValue++
	if _, err := comCall(b.context, d3d11Context4Signal,
		b.fence, uintptr(b.fenceValue)); err != nil {
		b.log.Error("signal shared fence",
			slog.String(logging.KeyError, err.Error()))
		return capture.ResultError
	}
	comCallNoHR(b.context, d3d11ContextFlush)

	b.slots[slot].written = true
	return capture.ResultOK
}

func (b *backend) forwardPointer(info *duplFrameInfo) {
	p := capture.Pointer{
		X:       info.PointerPosition.Position.X,
		Y:       info.PointerPosition.Position.Y,
		Visible: info.PointerPosition.Visible != 0,
	}

	if info.PointerShapeBufferSize == 0 {
		b.pointer(&p, nil)
		return
	}

	if uint32(len(b.shapeBuf)) < info.PointerShapeBufferSize {
		b.shapeBuf = make([]byte, info.PointerShapeBufferSize)
	}
	var (
		required uint32
		si       duplPointerShapeInfo
	)
	if _, err := comCall(b.dupl, dxgiDuplGetFramePointerShape,
		uintptr(len(b.shapeBuf)),
		uintptr(unsafe.Pointer(&b.shapeBuf[0])),
		uintptr(unsafe.Pointer(&required)),
		uintptr(unsafe.Pointer(&si)),
	); err != nil {
		b.log.Error("get pointer shape",
			slog.String(logging.KeyError, err.Error()))
		b.pointer(&p, nil)
		return
	}

	p.ShapeUpdate = true
	p.Width = si.Width
	p.Height = si.Height
	p.Pitch = si.Pitch
	p.HotX = uint32(si.HotSpot.X)
	p.HotY = uint32(si.HotSpot.Y)
	switch si.Type {
	case dxgiPointerShapeColor:
		p.ShapeFormat = capture.PointerShapeColor
	case dxgiPointerShapeMaskedColor:
		p.ShapeFormat = capture.PointerShapeMasked
	case dxgiPointerShapeMonochrome:
		// monochrome shapes carry stacked AND/XOR masks
		p.ShapeFormat = capture.PointerShapeMonochrome
		p.Height = si.Height / 2
	default:
		b.pointer(&p, nil)
		return
	}
	b.pointer(&p, b.shapeBuf[:required])
}

// Fetch returns the slot's shared frame texture as seen by the pipeline's
// D3D12 device, or nil before the first successful capture.
func (b *backend) Fetch(slot int) d3d12.Resource {
	s := &b.slots[slot]
	if !s.written {
		return nil
	}
	return s.resource
}

// Sync makes the pipeline's queue wait until the D3D11 copy that produced
// the most recent frame has completed.
func (b *backend) Sync(queue d3d12.CommandQueue) capture.Result {
	if b.fenceValue == 0 {
		return capture.ResultOK
	}
	if err := queue.Wait(b.d12Fence, b.fenceValue); err != nil {
		b.log.Error("queue wait on shared fence",
			slog.String(logging.KeyError, err.Error()))
		return capture.ResultError
	}
	return capture.ResultOK
}

func (b *backend) Deinit() error {
	b.releaseAll()
	return nil
}

func (b *backend) Free() {
	b.releaseAll()
	b.slots = nil
	b.pointer = nil
}

func (b *backend) releaseAll() {
	for i := range b.slots {
		b.slots[i].release()
	}
	if b.d12Fence != nil {
		b.d12Fence.Release()
		b.d12Fence = nil
	}
	comRelease(b.fence)
	b.fence = 0
	comRelease(b.dupl)
	b.dupl = 0
	comRelease(b.context)
	b.context = 0
	comRelease(b.device)
	b.device = 0
	b.fenceValue = 0
}
