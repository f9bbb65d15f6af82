package d12

import (
	"bytes"
	"errors"
	"testing"

	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/d3d12"
	"github.com/framelink/host/internal/logging"
	"github.com/framelink/host/internal/shmem"
)

func newTestPipeline(slotCount int) (*Pipeline, *fakeDevice, *fakeBackend, *fakeFactory) {
	dev := &fakeDevice{}
	be := newFakeBackend()
	factory := &fakeFactory{adapters: []*fakeAdapter{
		newFakeAdapter(0x10de, 0x2204, "Test GPU", attachedOutput(`\\.\DISPLAY1`)),
	}}
	p := &Pipeline{
		log: logging.L("capture.d12"),
		hooks: platformHooks{
			createFactory: func(bool) (d3d12.Factory, error) { return factory, nil },
			createDevice:  func(d3d12.Adapter, uint32) (d3d12.Device, error) { return dev, nil },
			enableDebug:   func() error { return nil },
		},
		queuePriority:     d3d12.QueuePriorityGlobalRealtime,
		backend:           be,
		slots:             make([]slotEntry, slotCount),
		getPointerBuffer:  func() ([]byte, bool) { return make([]byte, 4096), true },
		postPointerBuffer: func(*capture.Pointer) {},
	}
	return p, dev, be, factory
}

func testSlots(t *testing.T, count int) (*shmem.Region, []*shmem.FrameBuffer) {
	t.Helper()
	region := shmem.FromSlice(make([]byte, 1<<20))
	fbs, err := region.Slots(count, 64)
	if err != nil {
		t.Fatalf("carving slots: %v", err)
	}
	return region, fbs
}

func mustInit(t *testing.T, p *Pipeline, region *shmem.Region) uint64 {
	t.Helper()
	align, err := p.Init(region.Base())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return align
}

func TestInitReturnsHeapAlignment(t *testing.T) {
	p, dev, be, _ := newTestPipeline(2)
	dev.heap = &fakeHeap{alignment: 0x10000}
	region, _ := testSlots(t, 2)

	align := mustInit(t, p, region)
	if align != 0x10000 {
		t.Fatalf("alignment = 0x%x, want 0x10000", align)
	}
	if be.inits != 1 {
		t.Fatalf("backend inits = %d, want 1", be.inits)
	}
	if len(dev.queues) != 1 || dev.queues[0].name != "Copy Queue" {
		t.Fatalf("copy queue not created or unnamed: %+v", dev.queues)
	}
}

func TestInitFailureReleasesEverything(t *testing.T) {
	p, dev, be, factory := newTestPipeline(1)
	be.initErr = errors.New("no duplication")
	region, _ := testSlots(t, 1)

	if _, err := p.Init(region.Base()); err == nil {
		t.Fatal("Init should fail when the backend cannot start")
	}

	if !factory.released {
		t.Error("factory not released")
	}
	if !factory.adapters[0].released {
		t.Error("adapter not released")
	}
	if !factory.adapters[0].outputs[0].released {
		t.Error("output not released")
	}
	if !dev.released {
		t.Error("device not released")
	}
	if len(dev.queues) != 1 || !dev.queues[0].released {
		t.Error("queue not released")
	}
	if dev.group == nil || !dev.group.released {
		t.Error("command group not released")
	}
	if dev.heap == nil || !dev.heap.released {
		t.Error("heap not released")
	}
}

func TestQueuePriorityDowngradeIsRemembered(t *testing.T) {
	p, dev, _, _ := newTestPipeline(1)
	dev.queueErrs = []error{errors.New("access denied")}
	region, _ := testSlots(t, 1)

	mustInit(t, p, region)

	if got := dev.queueDescs[0].Priority; got != d3d12.QueuePriorityGlobalRealtime {
		t.Fatalf("first attempt priority = %d, want global realtime", got)
	}
	if got := dev.queueDescs[1].Priority; got != d3d12.QueuePriorityHigh {
		t.Fatalf("retry priority = %d, want high", got)
	}

	// a later session must not retry realtime
	if err := p.Deinit(); err != nil {
		t.Fatalf("Deinit: %v", err)
	}
	mustInit(t, p, region)

	if len(dev.queueDescs) != 3 {
		t.Fatalf("queue creation attempts = %d, want 3", len(dev.queueDescs))
	}
	if got := dev.queueDescs[2].Priority; got != d3d12.QueuePriorityHigh {
		t.Fatalf("post-downgrade priority = %d, want high", got)
	}
}

func TestWaitFrameMetadata(t *testing.T) {
	p, _, be, _ := newTestPipeline(1)
	region, _ := testSlots(t, 1)
	mustInit(t, p, region)
	be.setFrame(0, 64, 32)

	frame, result := p.WaitFrame(0, 64*32*4)
	if result != capture.ResultOK {
		t.Fatalf("result = %v, want ok", result)
	}
	if frame.FrameWidth != 64 || frame.FrameHeight != 32 {
		t.Fatalf("frame size = %dx%d, want 64x32", frame.FrameWidth, frame.FrameHeight)
	}
	if frame.DataHeight != 32 || frame.Truncated {
		t.Fatalf("full budget must not truncate: dataHeight=%d truncated=%v",
			frame.DataHeight, frame.Truncated)
	}
	if frame.Pitch != 64*4 || frame.Stride != 64 {
		t.Fatalf("pitch=%d stride=%d, want 256/64", frame.Pitch, frame.Stride)
	}
	if frame.Format != capture.FormatBGRA {
		t.Fatalf("format = %v, want BGRA", frame.Format)
	}
}

func TestWaitFrameTruncatesToBudget(t *testing.T) {
	p, _, be, _ := newTestPipeline(1)
	region, _ := testSlots(t, 1)
	mustInit(t, p, region)
	be.setFrame(0, 64, 32)

	// room for 10 rows only
	frame, result := p.WaitFrame(0, 64*4*10)
	if result != capture.ResultOK {
		t.Fatalf("result = %v, want ok", result)
	}
	if !frame.Truncated {
		t.Fatal("frame should be marked truncated")
	}
	if frame.DataHeight != 10 {
		t.Fatalf("dataHeight = %d, want 10", frame.DataHeight)
	}
	if frame.FrameHeight != 32 {
		t.Fatalf("frameHeight = %d, want full 32", frame.FrameHeight)
	}
}

func TestWaitFrameFormatVersion(t *testing.T) {
	p, _, be, _ := newTestPipeline(1)
	region, _ := testSlots(t, 1)
	mustInit(t, p, region)
	be.setFrame(0, 64, 32)

	frame, _ := p.WaitFrame(0, 64*32*4)
	first := frame.FormatVer

	frame, _ = p.WaitFrame(0, 64*32*4)
	if frame.FormatVer != first {
		t.Fatalf("unchanged format bumped version: %d -> %d", first, frame.FormatVer)
	}

	be.setFrame(0, 64, 48)
	frame, _ = p.WaitFrame(0, 64*48*4)
	if frame.FormatVer != first+1 {
		t.Fatalf("resized frame version = %d, want %d", frame.FormatVer, first+1)
	}

	frame, _ = p.WaitFrame(0, 64*48*4)
	if frame.FormatVer != first+1 {
		t.Fatalf("stable format bumped version again: %d", frame.FormatVer)
	}
}

func TestWaitFrameMissingFrame(t *testing.T) {
	p, _, _, _ := newTestPipeline(1)
	region, _ := testSlots(t, 1)
	mustInit(t, p, region)

	if _, result := p.WaitFrame(0, 1<<20); result != capture.ResultError {
		t.Fatalf("result = %v, want error", result)
	}
}

func TestGetFramePublishes(t *testing.T) {
	p, dev, be, _ := newTestPipeline(1)
	region, fbs := testSlots(t, 1)
	mustInit(t, p, region)
	be.setFrame(0, 64, 32)

	if result := p.GetFrame(0, fbs[0], 64*32*4); result != capture.ResultOK {
		t.Fatalf("result = %v, want ok", result)
	}

	if fbs[0].WriteCursor() != 64*32*4 {
		t.Fatalf("write cursor = %d, want %d", fbs[0].WriteCursor(), 64*32*4)
	}
	if dev.group.executes != 1 {
		t.Fatalf("executes = %d, want 1", dev.group.executes)
	}
	if len(dev.group.copies) != 1 {
		t.Fatalf("copies = %d, want 1", len(dev.group.copies))
	}

	cp := dev.group.copies[0]
	if cp.src.Type != d3d12.CopyTypeSubresourceIndex {
		t.Errorf("src copy type = %d, want subresource index", cp.src.Type)
	}
	if cp.dst.Type != d3d12.CopyTypePlacedFootprint {
		t.Errorf("dst copy type = %d, want placed footprint", cp.dst.Type)
	}
	if got := cp.dst.PlacedFootprint.Footprint.RowPitch; got != 64*4 {
		t.Errorf("row pitch = %d, want 256", got)
	}
}

func TestGetFrameSyncFailureDoesNotPublish(t *testing.T) {
	p, dev, be, _ := newTestPipeline(1)
	region, fbs := testSlots(t, 1)
	mustInit(t, p, region)
	be.setFrame(0, 64, 32)
	be.syncResult = capture.ResultReinit

	if result := p.GetFrame(0, fbs[0], 64*32*4); result != capture.ResultReinit {
		t.Fatalf("result = %v, want reinit", result)
	}
	if fbs[0].WriteCursor() != 0 {
		t.Fatal("write cursor advanced despite sync failure")
	}
	if dev.group.executes != 0 {
		t.Fatal("copy executed despite sync failure")
	}
}

func TestGetFrameExecuteFailureDoesNotPublish(t *testing.T) {
	p, dev, be, _ := newTestPipeline(1)
	region, fbs := testSlots(t, 1)
	dev.group = &fakeCommandGroup{execErr: errors.New("device removed")}
	mustInit(t, p, region)
	be.setFrame(0, 64, 32)

	if result := p.GetFrame(0, fbs[0], 64*32*4); result != capture.ResultError {
		t.Fatalf("result = %v, want error", result)
	}
	if fbs[0].WriteCursor() != 0 {
		t.Fatal("write cursor advanced despite execute failure")
	}
}

func TestPointerShapeDelivered(t *testing.T) {
	p, _, _, _ := newTestPipeline(1)
	shapeBuf := make([]byte, 4096)
	var posted []*capture.Pointer
	p.getPointerBuffer = func() ([]byte, bool) { return shapeBuf, true }
	p.postPointerBuffer = func(ptr *capture.Pointer) { posted = append(posted, ptr) }

	shape := []byte{1, 2, 3, 4}
	ptr := &capture.Pointer{X: 10, Y: 20, Visible: true, ShapeUpdate: true, Width: 1, Height: 1}
	p.updatePointer(ptr, shape)

	if len(posted) != 1 {
		t.Fatalf("posted events = %d, want 1", len(posted))
	}
	if !posted[0].ShapeUpdate {
		t.Fatal("shape update flag cleared on the success path")
	}
	if !bytes.Equal(shapeBuf[:4], shape) {
		t.Fatalf("shape not copied: %v", shapeBuf[:4])
	}
}

func TestPointerShapeBufferFailureStillPosts(t *testing.T) {
	p, _, _, _ := newTestPipeline(1)
	var posted []*capture.Pointer
	p.getPointerBuffer = func() ([]byte, bool) { return nil, false }
	p.postPointerBuffer = func(ptr *capture.Pointer) { posted = append(posted, ptr) }

	ptr := &capture.Pointer{X: 5, Y: 5, Visible: true, ShapeUpdate: true}
	p.updatePointer(ptr, []byte{9, 9})

	if len(posted) != 1 {
		t.Fatal("event must be posted even when the shape buffer is unavailable")
	}
	if posted[0].ShapeUpdate {
		t.Fatal("shape update flag must be cleared when no buffer is available")
	}
	if posted[0].X != 5 || posted[0].Y != 5 {
		t.Fatal("position lost on the failure path")
	}
}

func TestPointerMoveWithoutShape(t *testing.T) {
	p, _, _, _ := newTestPipeline(1)
	called := false
	p.getPointerBuffer = func() ([]byte, bool) { called = true; return nil, false }
	var posted []*capture.Pointer
	p.postPointerBuffer = func(ptr *capture.Pointer) { posted = append(posted, ptr) }

	p.updatePointer(&capture.Pointer{X: 1, Y: 2, Visible: true}, nil)

	if called {
		t.Fatal("move-only events must not request a shape buffer")
	}
	if len(posted) != 1 {
		t.Fatal("move-only event not posted")
	}
}

func TestCaptureDelegatesToBackend(t *testing.T) {
	p, _, be, _ := newTestPipeline(2)
	region, _ := testSlots(t, 2)
	mustInit(t, p, region)

	p.Capture(1)
	p.Capture(0)
	if len(be.captures) != 2 || be.captures[0] != 1 || be.captures[1] != 0 {
		t.Fatalf("captures = %v, want [1 0]", be.captures)
	}
}

func TestCaptureBeforeFirstFrameIsTimeout(t *testing.T) {
	p, _, be, _ := newTestPipeline(1)
	region, _ := testSlots(t, 1)
	mustInit(t, p, region)

	// a cursor-only update succeeds in the backend without producing an
	// image; the loop must not treat that as a failure
	if result := p.Capture(0); result != capture.ResultTimeout {
		t.Fatalf("Capture before first frame = %v, want timeout", result)
	}

	be.setFrame(0, 64, 32)
	if result := p.Capture(0); result != capture.ResultOK {
		t.Fatalf("Capture with a frame = %v, want OK", result)
	}
}

func TestDeinitReleasesSessionState(t *testing.T) {
	p, dev, be, factory := newTestPipeline(1)
	region, fbs := testSlots(t, 1)
	mustInit(t, p, region)
	be.setFrame(0, 64, 32)
	if result := p.GetFrame(0, fbs[0], 64*32*4); result != capture.ResultOK {
		t.Fatal("GetFrame failed")
	}

	if err := p.Deinit(); err != nil {
		t.Fatalf("Deinit: %v", err)
	}

	if be.deinits != 1 {
		t.Fatalf("backend deinits = %d, want 1", be.deinits)
	}
	if !factory.released || !dev.released || !dev.heap.released {
		t.Fatal("session handles not released")
	}
	if dev.placed[0].refs != 0 {
		t.Fatalf("slot resource refs = %d after Deinit, want 0", dev.placed[0].refs)
	}
}
