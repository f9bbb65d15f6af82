package d12

import "errors"

var (
	// ErrNoSuitableDevice means no hardware adapter with a desktop-attached
	// output was found.
	ErrNoSuitableDevice = errors.New("no suitable GPU device/output pair found")

	// ErrQueueCreation means the copy command queue could not be created
	// even after the priority downgrade retry.
	ErrQueueCreation = errors.New("copy command queue creation failed")

	// ErrHeapImport means the shared memory region could not be opened as a
	// GPU heap.
	ErrHeapImport = errors.New("shared memory heap import failed")

	// ErrResourceCreation means a slot's placed resource could not be
	// created. The slot's previous resource, if any, remains valid.
	ErrResourceCreation = errors.New("slot resource creation failed")

	// ErrBackendFrame means the backend did not hold a frame for a slot it
	// was asked about. Internal consistency failure; the frame is dropped
	// and the next cycle retries.
	ErrBackendFrame = errors.New("backend failed to produce an expected frame")

	// ErrUnknownBackend means the configured backend name is not registered.
	ErrUnknownBackend = errors.New("unknown capture backend")
)
