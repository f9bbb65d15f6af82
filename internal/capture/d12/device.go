package d12

import (
	"fmt"
	"log/slog"

	"github.com/framelink/host/internal/d3d12"
	"github.com/framelink/host/internal/logging"
)

// deniedAdapters lists virtual display adapters that cannot drive the
// pipeline: they either lack D3D12 support or produce no real desktop.
var deniedAdapters = []struct {
	vendorID uint32
	deviceID uint32
	name     string
}{
	{0x1414, 0x008c, "Microsoft Basic Render Driver"},
	{0x1b36, 0x000d, "Red Hat QXL"},
	{0x1234, 0x1111, "QEMU Standard VGA"},
}

func adapterDenied(desc *d3d12.AdapterDesc1) (string, bool) {
	for _, deny := range deniedAdapters {
		if desc.VendorID == deny.vendorID && desc.DeviceID == deny.deviceID {
			return deny.name, true
		}
	}
	return "", false
}

// selectDevice walks the adapters in enumeration order and returns the
// first non-denied adapter together with its first desktop-attached
// output. Ownership of both transfers to the caller; on error nothing is
// retained.
func selectDevice(factory d3d12.Factory, log *slog.Logger) (d3d12.Adapter, d3d12.Output, error) {
	for i := uint32(0); ; i++ {
		adapter, found, err := factory.EnumAdapter(i)
		if err != nil {
			return nil, nil, fmt.Errorf("enumerate adapter %d: %w", i, err)
		}
		if !found {
			break
		}

		desc, err := adapter.Desc1()
		if err != nil {
			adapter.Release()
			return nil, nil, fmt.Errorf("adapter %d description: %w", i, err)
		}

		if name, denied := adapterDenied(&desc); denied {
			log.Debug("skipping denied adapter",
				slog.String("adapter", name),
				slog.String("vendor_id", fmt.Sprintf("0x%04x", desc.VendorID)),
				slog.String("device_id", fmt.Sprintf("0x%04x", desc.DeviceID)))
			adapter.Release()
			continue
		}

		output, err := firstAttachedOutput(adapter)
		if err != nil {
			adapter.Release()
			return nil, nil, err
		}
		if output == nil {
			adapter.Release()
			continue
		}

		odesc, err := output.Desc()
		if err != nil {
			output.Release()
			adapter.Release()
			return nil, nil, fmt.Errorf("output description: %w", err)
		}

		log.Info("selected GPU adapter",
			slog.String("description", desc.DescriptionString()),
			slog.String("vendor_id", fmt.Sprintf("0x%04x", desc.VendorID)),
			slog.String("device_id", fmt.Sprintf("0x%04x", desc.DeviceID)),
			slog.Uint64("video_memory_mb", uint64(desc.DedicatedVideoMemory)/(1024*1024)),
			slog.Uint64("shared_memory_mb", uint64(desc.SharedSystemMemory)/(1024*1024)),
			slog.String("output", odesc.DeviceNameString()))
		return adapter, output, nil
	}
	return nil, nil, ErrNoSuitableDevice
}

func firstAttachedOutput(adapter d3d12.Adapter) (d3d12.Output, error) {
	for n := uint32(0); ; n++ {
		output, found, err := adapter.EnumOutput(n)
		if err != nil {
			return nil, fmt.Errorf("enumerate output %d: %w", n, err)
		}
		if !found {
			return nil, nil
		}
		desc, err := output.Desc()
		if err != nil {
			output.Release()
			return nil, fmt.Errorf("output %d description: %w", n, err)
		}
		if desc.AttachedToDesktop != 0 {
			return output, nil
		}
		output.Release()
	}
}

// createCopyQueue creates the pipeline's copy queue at *priority, which
// starts at global realtime. When the scheduler refuses that privilege the
// priority is downgraded to high and remembered, so re-initialization does
// not retry realtime.
func createCopyQueue(device d3d12.Device, priority *int32, log *slog.Logger) (d3d12.CommandQueue, error) {
	desc := d3d12.CommandQueueDesc{
		Type:     d3d12.CommandListTypeCopy,
		Priority: *priority,
	}
	queue, err := device.CreateCommandQueue(&desc)
	if err != nil && desc.Priority == d3d12.QueuePriorityGlobalRealtime {
		log.Warn("global realtime copy queue unavailable, using high priority",
			slog.String(logging.KeyError, err.Error()))
		desc.Priority = d3d12.QueuePriorityHigh
		*priority = desc.Priority
		queue, err = device.CreateCommandQueue(&desc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueCreation, err)
	}
	queue.SetName("Copy Queue")
	return queue, nil
}
