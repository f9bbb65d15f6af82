// Package capture defines the capture-interface contract between the host
// application and a frame capture implementation. A capture implementation
// produces GPU-resident frames and publishes them into externally shared
// frame buffers; the host drives it with a Capture/WaitFrame/GetFrame cycle
// per slot.
package capture

import (
	"errors"
	"unsafe"

	"github.com/framelink/host/internal/shmem"
)

// Result is the outcome of a capture operation.
type Result int

const (
	// ResultOK means the operation completed.
	ResultOK Result = iota
	// ResultTimeout means no new frame was available in time; try again.
	ResultTimeout
	// ResultReinit means the capture source was lost (display mode change,
	// desktop switch); the interface must be re-initialized.
	ResultReinit
	// ResultError is a permanent failure for this call; the frame is
	// dropped and the next cycle may retry.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultTimeout:
		return "timeout"
	case ResultReinit:
		return "reinit"
	default:
		return "error"
	}
}

// PixelFormat tags the byte interpretation of published frame data.
type PixelFormat int

const (
	// FormatBGRA is 4 bytes per pixel, BGRA ordered, row-major.
	FormatBGRA PixelFormat = iota
)

// Rotation of the captured image relative to the display.
type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Frame describes one published frame. DataHeight may be less than
// FrameHeight when the frame was truncated to the caller's byte budget.
type Frame struct {
	FormatVer    uint32
	ScreenWidth  uint32
	ScreenHeight uint32
	DataWidth    uint32
	DataHeight   uint32
	FrameWidth   uint32
	FrameHeight  uint32
	Truncated    bool
	Pitch        uint32
	Stride       uint32
	Format       PixelFormat
	Rotation     Rotation
	HDR          bool
	HDRPQ        bool
}

// PointerShapeFormat tags cursor shape payloads.
type PointerShapeFormat int

const (
	PointerShapeColor PointerShapeFormat = iota
	PointerShapeMasked
	PointerShapeMonochrome
)

// Pointer is a cursor event, optionally carrying a shape update.
type Pointer struct {
	X, Y        int32
	Visible     bool
	ShapeUpdate bool
	ShapeFormat PointerShapeFormat
	Width       uint32
	Height      uint32
	Pitch       uint32
	HotX, HotY  uint32
}

// GetPointerBufferFn returns a destination buffer for a cursor shape
// update. ok=false means no buffer is currently available.
type GetPointerBufferFn func() (buf []byte, ok bool)

// PostPointerBufferFn delivers a pointer event downstream. Called for every
// event, with or without a shape payload.
type PostPointerBufferFn func(p *Pointer)

// Interface is the host application's capture plugin surface.
type Interface interface {
	// Name identifies the implementation.
	Name() string

	// Create allocates the implementation. Must be called first.
	Create(getPointerBuffer GetPointerBufferFn, postPointerBuffer PostPointerBufferFn, slotCount int) error

	// Init brings up the GPU pipeline against the shared memory region and
	// returns the region alignment every slot offset must satisfy.
	Init(sharedMemoryBase unsafe.Pointer) (alignment uint64, err error)

	// Capture requests production of a frame for the slot.
	Capture(slot int) Result

	// WaitFrame returns the metadata of the slot's current frame without
	// copying pixel data. maxBytes caps how much a subsequent GetFrame may
	// publish.
	WaitFrame(slot int, maxBytes uint64) (*Frame, Result)

	// GetFrame copies the slot's current frame into fb and publishes it by
	// advancing the frame buffer's write cursor.
	GetFrame(slot int, fb *shmem.FrameBuffer, maxBytes uint64) Result

	// Stop interrupts a blocked WaitFrame/Capture, if any.
	Stop()

	// Deinit tears down the GPU pipeline. Create/Init may follow again.
	Deinit() error

	// Free releases everything. The interface is unusable afterwards.
	Free()
}

// ErrNotSupported is returned when no capture implementation exists for the
// platform.
var ErrNotSupported = errors.New("capture not supported on this platform")
