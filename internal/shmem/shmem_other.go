//go:build !windows

package shmem

// Open is unsupported off Windows; the GPU heap import the region feeds
// requires a D3D12 device.
func Open(name string, size uint64) (*Region, error) {
	return nil, ErrNotSupported
}
