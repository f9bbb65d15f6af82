//go:build !windows

package d12

import (
	"github.com/framelink/host/internal/capture"
	"github.com/framelink/host/internal/d3d12"
)

func defaultHooks() platformHooks {
	return platformHooks{
		createFactory: func(bool) (d3d12.Factory, error) {
			return nil, capture.ErrNotSupported
		},
		createDevice: func(d3d12.Adapter, uint32) (d3d12.Device, error) {
			return nil, capture.ErrNotSupported
		},
		enableDebug: func() error {
			return capture.ErrNotSupported
		},
	}
}
