package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	gohost "github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/capture/d12"
	_ "github.com/framelink/host/internal/capture/d12/ddup"
	"github.com/framelink/host/internal/config"
	"github.com/framelink/host/internal/control"
	"github.com/framelink/host/internal/logging"
	"github.com/framelink/host/internal/shmem"
)

// errorBackoff paces retries after a failed capture cycle so a wedged
// backend does not spin the CPU.
const errorBackoff = 100 * time.Millisecond

type metrics struct {
	published atomic.Uint64
	truncated atomic.Uint64
	timeouts  atomic.Uint64
	reinits   atomic.Uint64
	errors    atomic.Uint64
	formatVer atomic.Uint32
}

type host struct {
	cfg      *config.Config
	log      *slog.Logger
	pipeline capture.Interface
	region   *shmem.Region
	fbs      []*shmem.FrameBuffer
	pointer  *pointerChannel
	metrics  metrics
	start    time.Time

	stopOnce sync.Once
	stopc    chan struct{}
}

func runHost() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var output io.Writer
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, 50, 3)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		output = rw
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, output)

	h := &host{
		cfg:     cfg,
		log:     logging.L("host"),
		pointer: newPointerChannel(cfg.PointerBufferKB),
		start:   time.Now(),
		stopc:   make(chan struct{}),
	}

	h.log.Info("starting FrameLink host",
		slog.String("version", version),
		slog.String(logging.KeyBackend, cfg.CaptureBackend),
		slog.Int("slots", cfg.SlotCount),
		slog.String("shared_memory", cfg.SharedMemoryName),
		slog.Int("shared_memory_mb", cfg.SharedMemorySizeMB))
	h.logDiagnostics()

	pipeline := d12.New(d12.Options{
		Backend: cfg.CaptureBackend,
		Debug:   cfg.GPUDebug,
	})
	if err := pipeline.Create(h.pointer.get, h.pointer.post, cfg.SlotCount); err != nil {
		return fmt.Errorf("create capture pipeline: %w", err)
	}
	defer pipeline.Free()
	h.pipeline = pipeline

	region, err := shmem.Open(cfg.SharedMemoryName, uint64(cfg.SharedMemorySizeMB)<<20)
	if err != nil {
		return fmt.Errorf("open shared memory %q: %w", cfg.SharedMemoryName, err)
	}
	defer region.Close()
	h.region = region

	if err := h.initPipeline(); err != nil {
		return err
	}
	defer pipeline.Deinit()

	ctl := control.NewServer(cfg.ControlPath, h.status, h.requestStop)
	go func() {
		if err := ctl.Listen(h.stopc); err != nil {
			h.log.Error("control channel failed",
				slog.String(logging.KeyError, err.Error()))
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigc:
			h.log.Info("signal received", slog.String("signal", sig.String()))
			h.requestStop()
		case <-h.stopc:
		}
	}()

	err = h.captureLoop()
	h.log.Info("capture loop finished",
		slog.Uint64("frames_published", h.metrics.published.Load()))
	return err
}

// initPipeline (re)initializes the GPU pipeline against the shared region
// and carves the frame buffer slots at the alignment the heap demands.
func (h *host) initPipeline() error {
	align, err := h.pipeline.Init(h.region.Base())
	if err != nil {
		return fmt.Errorf("init capture pipeline: %w", err)
	}

	fbs, err := h.region.Slots(h.cfg.SlotCount, align)
	if err != nil {
		h.pipeline.Deinit()
		return fmt.Errorf("carve frame buffer slots: %w", err)
	}
	h.fbs = fbs
	return nil
}

func (h *host) captureLoop() error {
	slot := 0
	for !h.stopping() {
		switch result := h.pipeline.Capture(slot); result {
		case capture.ResultOK:
		case capture.ResultTimeout:
			h.metrics.timeouts.Add(1)
			continue
		case capture.ResultReinit:
			if err := h.reinit(); err != nil {
				return err
			}
			continue
		default:
			h.metrics.errors.Add(1)
			h.pause()
			continue
		}

		fb := h.fbs[slot]
		frame, result := h.pipeline.WaitFrame(slot, fb.Size())
		if result != capture.ResultOK {
			if !h.handleFailure(result) {
				if err := h.reinit(); err != nil {
					return err
				}
			}
			continue
		}

		if result := h.pipeline.GetFrame(slot, fb, fb.Size()); result != capture.ResultOK {
			if !h.handleFailure(result) {
				if err := h.reinit(); err != nil {
					return err
				}
			}
			continue
		}

		h.metrics.published.Add(1)
		if frame.Truncated {
			if h.metrics.truncated.Add(1) == 1 {
				h.log.Warn("frame exceeds slot capacity, truncating",
					slog.Uint64("frame_bytes", uint64(frame.Pitch)*uint64(frame.FrameHeight)),
					slog.Uint64("slot_bytes", fb.Size()))
			}
		}
		h.metrics.formatVer.Store(frame.FormatVer)

		slot = (slot + 1) % len(h.fbs)
	}
	return nil
}

// handleFailure records a non-OK result and reports whether the loop can
// carry on without re-initializing.
func (h *host) handleFailure(result capture.Result) bool {
	if result == capture.ResultReinit {
		return false
	}
	h.metrics.errors.Add(1)
	h.pause()
	return true
}

func (h *host) reinit() error {
	h.metrics.reinits.Add(1)
	h.log.Info("capture source lost, reinitializing")

	if err := h.pipeline.Deinit(); err != nil {
		h.log.Warn("deinit reported errors",
			slog.String(logging.KeyError, err.Error()))
	}

	// the desktop can stay unavailable for a while during mode switches
	for !h.stopping() {
		err := h.initPipeline()
		if err == nil {
			return nil
		}
		h.log.Warn("reinit attempt failed",
			slog.String(logging.KeyError, err.Error()))
		h.pause()
	}
	return nil
}

func (h *host) pause() {
	select {
	case <-time.After(errorBackoff):
	case <-h.stopc:
	}
}

func (h *host) stopping() bool {
	select {
	case <-h.stopc:
		return true
	default:
		return false
	}
}

func (h *host) requestStop() {
	h.stopOnce.Do(func() {
		h.pipeline.Stop()
		close(h.stopc)
	})
}

func (h *host) status() control.Status {
	return control.Status{
		Version:         version,
		Backend:         h.cfg.CaptureBackend,
		Running:         !h.stopping(),
		UptimeSeconds:   time.Since(h.start).Seconds(),
		Slots:           h.cfg.SlotCount,
		FramesPublished: h.metrics.published.Load(),
		FramesTruncated: h.metrics.truncated.Load(),
		Timeouts:        h.metrics.timeouts.Load(),
		Reinits:         h.metrics.reinits.Load(),
		Errors:          h.metrics.errors.Load(),
		FormatVersion:   h.metrics.formatVer.Load(),
	}
}

func (h *host) logDiagnostics() {
	if info, err := gohost.Info(); err == nil {
		h.log.Info("system",
			slog.String("hostname", info.Hostname),
			slog.String("os", info.OS),
			slog.String("platform", info.Platform),
			slog.String("platform_version", info.PlatformVersion),
			slog.String("arch", info.KernelArch))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.log.Info("memory",
			slog.Uint64("total_mb", vm.Total/(1024*1024)),
			slog.Uint64("available_mb", vm.Available/(1024*1024)))
	}
}

// pointerChannel owns the scratch buffer cursor shapes are staged in and
// accounts for delivered events. Capture runs single threaded, so one
// buffer is enough; a consumer integration would hand out slots of a
// shared ring here instead.
type pointerChannel struct {
	log    *slog.Logger
	buf    []byte
	events atomic.Uint64
	shapes atomic.Uint64
}

func newPointerChannel(bufKB int) *pointerChannel {
	return &pointerChannel{
		log: logging.L("pointer"),
		buf: make([]byte, bufKB<<10),
	}
}

func (p *pointerChannel) get() ([]byte, bool) {
	return p.buf, true
}

func (p *pointerChannel) post(ptr *capture.Pointer) {
	p.events.Add(1)
	if ptr.ShapeUpdate {
		p.shapes.Add(1)
		p.log.Debug("cursor shape updated",
			slog.Uint64("width", uint64(ptr.Width)),
			slog.Uint64("height", uint64(ptr.Height)))
	}
	p.log.Debug("cursor",
		slog.Int("x", int(ptr.X)),
		slog.Int("y", int(ptr.Y)),
		slog.Bool("visible", ptr.Visible))
}
