// File: core/mmio/mmio_unix.go
//go:build unix

//
// Unix regions are anonymous private mappings, page aligned and outside the
// Go heap. Fallback to Go heap if the mapping fails.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package mmio

import "golang.org/x/sys/unix"

func mapRegion(size int) ([]byte, bool, error) {
	page := unix.Getpagesize()
	length := ((size + page - 1) / page) * page
	data, err := unix.Mmap(-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return make([]byte, size), false, nil
	}
	return data, true, nil
}

func unmapRegion(data []byte) error {
	return unix.Munmap(data)
}
