// File: core/mmio/mmio_other.go
//go:build !unix && !windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package mmio

// Hosts without a mapping primitive back regions with the Go heap.
func mapRegion(size int) ([]byte, bool, error) {
	return make([]byte, size), false, nil
}

func unmapRegion([]byte) error { return nil }
