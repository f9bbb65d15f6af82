//go:build windows

package d3d12

import (
	"unsafe"
)

// CreateFactory creates an IDXGIFactory2, optionally with the DXGI debug
// layer enabled.
func CreateFactory(debug bool) (Factory, error) {
	var flags uintptr
	if debug {
		flags = dxgiCreateFactoryDebug
	}

	var obj uintptr
	hr, _, _ := procCreateDXGIFactory2.Call(
		flags,
		uintptr(unsafe.Pointer(iidIDXGIFactory2)),
		uintptr(unsafe.Pointer(&obj)),
	)
	if int32(hr) < 0 {
		return nil, hrErr("CreateDXGIFactory2", hr)
	}
	return &factory{obj: obj}, nil
}

type factory struct {
	obj uintptr
}

func (f *factory) EnumAdapter(index uint32) (Adapter, bool, error) {
	var obj uintptr
	ret := comCallNoHR(f.obj, dxgiFactoryEnumAdapters1,
		uintptr(index),
		uintptr(unsafe.Pointer(&obj)),
	)
	if uint32(ret) == DXGIErrNotFound {
		return nil, false, nil
	}
	if int32(ret) < 0 {
		return nil, false, hrErr("IDXGIFactory1::EnumAdapters1", ret)
	}
	return &adapter{obj: obj}, true, nil
}

func (f *factory) Release() {
	comRelease(f.obj)
	f.obj = 0
}

type adapter struct {
	obj uintptr
}

func (a *adapter) Desc1() (AdapterDesc1, error) {
	var desc AdapterDesc1
	if _, err := comCall(a.obj, dxgiAdapterGetDesc1,
		uintptr(unsafe.Pointer(&desc)),
	); err != nil {
		return AdapterDesc1{}, err
	}
	return desc, nil
}

func (a *adapter) EnumOutput(index uint32) (Output, bool, error) {
	var obj uintptr
	ret := comCallNoHR(a.obj, dxgiAdapterEnumOutputs,
		uintptr(index),
		uintptr(unsafe.Pointer(&obj)),
	)
	if uint32(ret) == DXGIErrNotFound {
		return nil, false, nil
	}
	if int32(ret) < 0 {
		return nil, false, hrErr("IDXGIAdapter1::EnumOutputs", ret)
	}
	return &output{obj: obj}, true, nil
}

func (a *adapter) Ptr() uintptr { return a.obj }

func (a *adapter) Release() {
	comRelease(a.obj)
	a.obj = 0
}

type output struct {
	obj uintptr
}

func (o *output) Desc() (OutputDesc, error) {
	var desc OutputDesc
	if _, err := comCall(o.obj, dxgiOutputGetDesc,
		uintptr(unsafe.Pointer(&desc)),
	); err != nil {
		return OutputDesc{}, err
	}
	return desc, nil
}

func (o *output) Ptr() uintptr { return o.obj }

func (o *output) Release() {
	comRelease(o.obj)
	o.obj = 0
}
