//go:build windows

package d3d12

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
)

// COM vtable calling infrastructure, pure Go (no cgo).

const (
	vtblQueryInterface = 0
	vtblAddRef         = 1
	vtblRelease        = 2

	// ID3D12Object methods follow IUnknown.
	vtblObjectSetName = 6
)

// comCall invokes a COM vtable method at the given index.
// obj is a pointer to a COM interface (pointer to pointer to vtable).
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(comVtblFn(obj, vtableIdx), allArgs...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// comCallNoHR invokes a void or non-HRESULT vtable method.
func comCallNoHR(obj uintptr, vtableIdx int, args ...uintptr) uintptr {
	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(comVtblFn(obj, vtableIdx), allArgs...)
	return ret
}

// comVtblFn resolves a COM vtable function pointer by index.
func comVtblFn(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// comRelease calls IUnknown::Release.
func comRelease(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(comVtblFn(obj, vtblRelease), obj)
	}
}

// comAddRef calls IUnknown::AddRef.
func comAddRef(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(comVtblFn(obj, vtblAddRef), obj)
	}
}

// comQueryInterface queries obj for the given interface.
func comQueryInterface(obj uintptr, iid *ole.GUID) (uintptr, error) {
	var out uintptr
	_, err := comCall(obj, vtblQueryInterface,
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	)
	return out, err
}

// hrErr wraps a failed HRESULT with the operation that produced it.
func hrErr(op string, hr uintptr) error {
	return fmt.Errorf("%s: HRESULT 0x%08X", op, uint32(hr))
}

// setName assigns a debug name to an ID3D12Object.
func setName(obj uintptr, name string) {
	name16, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return
	}
	comCall(obj, vtblObjectSetName, uintptr(unsafe.Pointer(name16)))
}
