//go:build !windows

package ddup

import (
	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/capture/d12"
)

func init() {
	d12.RegisterBackend(Name, New)
}

// New always fails: desktop duplication requires the Windows DXGI stack.
func New(slotCount int, debug bool) (d12.Backend, error) {
	return nil, capture.ErrNotSupported
}
