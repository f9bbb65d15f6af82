//go:build windows

package d12

import "github.com/framelink/host/internal/d3d12"

func defaultHooks() platformHooks {
	return platformHooks{
		createFactory: d3d12.CreateFactory,
		createDevice:  d3d12.CreateDevice,
		enableDebug:   d3d12.EnableDebugLayer,
	}
}
