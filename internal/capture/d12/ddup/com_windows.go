//go:build windows

package ddup

import (
	"fmt"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// COM vtable plumbing, same shape as the d3d12 package: every interface
// pointer is a uintptr whose first word points at the vtable.

const (
	comVtblQueryInterface = 0
	comVtblRelease        = 2
)

func comVtblFn(obj uintptr, index uintptr) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtbl + index*unsafe.Sizeof(uintptr(0))))
}

func comCall(obj uintptr, index uintptr, args ...uintptr) (uintptr, error) {
	callArgs := append([]uintptr{obj}, args...)
	hr, _, _ := syscall.SyscallN(comVtblFn(obj, index), callArgs...)
	if int32(hr) < 0 {
		return hr, fmt.Errorf("hresult 0x%08X", uint32(hr))
	}
	return hr, nil
}

func comCallNoHR(obj uintptr, index uintptr, args ...uintptr) uintptr {
	callArgs := append([]uintptr{obj}, args...)
	r, _, _ := syscall.SyscallN(comVtblFn(obj, index), callArgs...)
	return r
}

func comRelease(obj uintptr) {
	if obj != 0 {
		comCallNoHR(obj, comVtblRelease)
	}
}

func comQueryInterface(obj uintptr, iid *ole.GUID) (uintptr, error) {
	var out uintptr
	if _, err := comCall(obj, comVtblQueryInterface,
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	); err != nil {
		return 0, err
	}
	return out, nil
}
