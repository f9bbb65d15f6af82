package d12

import (
	"fmt"
	"sort"
	"sync"

	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/d3d12"
)

// PointerSink receives cursor events produced by a backend. shape is only
// meaningful when the event carries a shape update.
type PointerSink func(p *capture.Pointer, shape []byte)

// Backend produces GPU-resident frames for the pipeline to export. A
// backend owns its source resources; Fetch lends them out without
// transferring ownership.
type Backend interface {
	// Name identifies the backend ("ddup", ...).
	Name() string

	// Init binds the backend to the pipeline's device and selected output.
	// pointer receives cursor updates observed during capture.
	Init(device d3d12.Device, adapter d3d12.Adapter, output d3d12.Output, pointer PointerSink) error

	// Capture produces or refreshes the frame for a slot.
	Capture(slot int) capture.Result

	// Fetch returns the slot's current GPU frame resource, or nil when the
	// slot has never been captured. The caller must not release it.
	Fetch(slot int) d3d12.Resource

	// Sync lets the backend insert ordering primitives into the shared
	// command queue before the pipeline's copy executes.
	Sync(queue d3d12.CommandQueue) capture.Result

	// Deinit releases device-bound state; Init may be called again.
	Deinit() error

	// Free releases everything.
	Free()
}

// BackendFactory constructs a backend for slotCount frame slots.
type BackendFactory func(slotCount int, debug bool) (Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]BackendFactory{}
)

// RegisterBackend makes a backend constructor available by name. Called
// from backend package init functions.
func RegisterBackend(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("d12: backend %q registered twice", name))
	}
	backends[name] = factory
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newBackend(name string, slotCount int, debug bool) (Backend, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return factory(slotCount, debug)
}
