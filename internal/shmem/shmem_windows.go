//go:build windows

package shmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Open creates (or opens) a named pagefile-backed section of the given size
// and maps it read-write. The consumer opens the same name to observe
// published frames.
func Open(name string, size uint64) (*Region, error) {
	name16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("shmem: invalid mapping name %q: %w", name, err)
	}

	handle, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		nil,
		windows.PAGE_READWRITE,
		uint32(size>>32),
		uint32(size&0xffffffff),
		name16,
	)
	if err != nil {
		return nil, fmt.Errorf("shmem: CreateFileMapping %q: %w", name, err)
	}

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("shmem: MapViewOfFile %q: %w", name, err)
	}

	return &Region{
		base: unsafe.Pointer(addr),
		size: size,
		close: func() error {
			unmapErr := windows.UnmapViewOfFile(addr)
			closeErr := windows.CloseHandle(handle)
			if unmapErr != nil {
				return fmt.Errorf("shmem: UnmapViewOfFile: %w", unmapErr)
			}
			if closeErr != nil {
				return fmt.Errorf("shmem: CloseHandle: %w", closeErr)
			}
			return nil
		},
	}, nil
}
