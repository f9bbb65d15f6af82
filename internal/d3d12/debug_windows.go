//go:build windows

package d3d12

import "unsafe"

// EnableDebugLayer turns on the D3D12 debug layer with GPU-based validation
// and synchronized command queue validation. Must be called before device
// creation to take effect.
func EnableDebugLayer() error {
	var obj uintptr
	hr, _, _ := procD3D12GetDebugInterface.Call(
		uintptr(unsafe.Pointer(iidID3D12Debug1)),
		uintptr(unsafe.Pointer(&obj)),
	)
	if int32(hr) < 0 {
		return hrErr("D3D12GetDebugInterface", hr)
	}
	defer comRelease(obj)

	comCallNoHR(obj, d3d12Debug1EnableDebugLayer)
	comCallNoHR(obj, d3d12Debug1SetEnableGPUBasedValidation, 1)
	comCallNoHR(obj, d3d12Debug1SetEnableSyncCommandQueueValidation, 1)
	return nil
}
