// File: core/mmio/mmio.go
// Package mmio provides simulated memory-mapped I/O regions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Block stands in for a peripheral's register window or for the heap arena:
// page-aligned memory obtained from the host outside the Go heap where the
// platform allows it, addressed by byte offset.

package mmio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/hioload-rt/api"
)

// WordSize is the register width in bytes.
const WordSize = 4

// Block is a fixed region of simulated device memory.
type Block struct {
	data   []byte
	mapped bool
	closed atomic.Bool
}

// Map obtains a zeroed region of at least size bytes.
func Map(size int) (*Block, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmio: size %d: %w", size, api.ErrInvalidArgument)
	}
	data, mapped, err := mapRegion(size)
	if err != nil {
		return nil, fmt.Errorf("mmio: map %d bytes: %w", size, err)
	}
	return &Block{data: data[:size], mapped: mapped}, nil
}

// Size returns the region length in bytes.
func (b *Block) Size() int { return len(b.data) }

// Mapped reports whether the region lives outside the Go heap.
func (b *Block) Mapped() bool { return b.mapped }

// Word returns the 32-bit word at offset. The offset must be word aligned and
// inside the region.
func (b *Block) Word(offset uintptr) (*uint32, error) {
	if offset%WordSize != 0 {
		return nil, fmt.Errorf("mmio: offset %#x unaligned: %w", offset, api.ErrInvalidArgument)
	}
	if offset+WordSize > uintptr(len(b.data)) {
		return nil, fmt.Errorf("mmio: offset %#x beyond %#x: %w", offset, len(b.data), api.ErrOutOfRange)
	}
	return (*uint32)(unsafe.Pointer(&b.data[offset])), nil
}

// Bytes returns size bytes starting at offset as a full-capacity slice.
func (b *Block) Bytes(offset, size int) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > len(b.data) {
		return nil, fmt.Errorf("mmio: range [%d,%d) beyond %d: %w", offset, offset+size, len(b.data), api.ErrOutOfRange)
	}
	return b.data[offset : offset+size : offset+size], nil
}

// Contains reports whether p points inside the region.
func (b *Block) Contains(p []byte) bool {
	if len(p) == 0 || len(b.data) == 0 {
		return false
	}
	start := uintptr(unsafe.Pointer(&b.data[0]))
	addr := uintptr(unsafe.Pointer(&p[0]))
	return addr >= start && addr+uintptr(len(p)) <= start+uintptr(len(b.data))
}

// Offset returns the byte offset of p within the region, or -1.
func (b *Block) Offset(p []byte) int {
	if !b.Contains(p) {
		return -1
	}
	return int(uintptr(unsafe.Pointer(&p[0])) - uintptr(unsafe.Pointer(&b.data[0])))
}

// Read32 performs a volatile read of the word at offset.
func (b *Block) Read32(offset uintptr) (uint32, error) {
	w, err := b.Word(offset)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(w), nil
}

// Write32 performs a volatile write of the word at offset.
func (b *Block) Write32(offset uintptr, v uint32) error {
	w, err := b.Word(offset)
	if err != nil {
		return err
	}
	atomic.StoreUint32(w, v)
	return nil
}

// Close returns the region to the host. Views into the region must not be
// used afterwards. Closing twice is a no-op.
func (b *Block) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !b.mapped {
		return nil
	}
	return unmapRegion(b.data[:cap(b.data)])
}
