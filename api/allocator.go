// File: api/allocator.go
// Author: momentics <momentics@gmail.com>
//
// Allocator contract consumed by the core wherever it must hold dynamically
// sized task state. Allocation failure is always surfaced to the caller.

package api

// Allocator acquires and releases raw memory blocks.
type Allocator interface {
	// Acquire returns a block of at least size bytes aligned to align, or
	// ErrOutOfMemory.
	Acquire(size, align int) ([]byte, error)

	// Release returns a block obtained from Acquire with the same size and
	// alignment. The block must not be used afterwards.
	Release(block []byte, size, align int) error
}

// AllocatorStats aggregates allocation accounting for diagnostics.
type AllocatorStats struct {
	TotalAlloc uint64
	TotalFree  uint64
	InUse      uint64
	Failures   uint64
	Classes    map[int]uint64 // free blocks per size class
}
