// File: core/mmio/mmio_windows.go
//go:build windows

//
// Windows regions are committed with VirtualAlloc. Fallback to Go heap on
// failure.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package mmio

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func mapRegion(size int) ([]byte, bool, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil || addr == 0 {
		return make([]byte, size), false, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), true, nil
}

func unmapRegion(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return windows.VirtualFree(uintptr(unsafe.Pointer(&data[0])), 0, windows.MEM_RELEASE)
}
