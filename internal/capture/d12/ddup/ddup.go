// Package ddup is the Desktop Duplication capture backend. It acquires
// desktop frames through IDXGIOutputDuplication on a D3D11 device, copies
// them into per-slot textures shared with the export pipeline's D3D12
// device, and signals a shared fence so the pipeline's copy queue can wait
// for the frame to be complete before exporting it.
package ddup

// Name is the registry name of this backend.
const Name = "ddup"
