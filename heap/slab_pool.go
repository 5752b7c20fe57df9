// File: heap/slab_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package heap

import (
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/core/concurrency"
)

// slabPool: fixed-size blocks of one size class carved from the arena.
type slabPool struct {
	size  int     // block size in bytes
	base  int     // arena offset of block 0
	count int     // number of blocks
	addr  uintptr // address of block 0, for alignment checks
	free  api.Ring[uint32]
	owned []atomic.Bool // block handed out

	totalAlloc atomic.Uint64
	totalFree  atomic.Uint64
}

func newSlabPool(size, base, count int, addr uintptr, atomics bool) *slabPool {
	sp := &slabPool{
		size:  size,
		base:  base,
		count: count,
		addr:  addr,
		free:  concurrency.NewQueue[uint32](count, atomics),
		owned: make([]atomic.Bool, count),
	}
	for i := 0; i < count; i++ {
		sp.free.Enqueue(uint32(i))
	}
	return sp
}

// fits reports whether blocks of this pool satisfy size and align.
func (sp *slabPool) fits(size, align int) bool {
	return sp.size >= size && sp.size%align == 0 && sp.addr%uintptr(align) == 0
}

// get pops a block index; ok is false when the pool is exhausted.
func (sp *slabPool) get() (int, bool) {
	idx, ok := sp.free.Dequeue()
	if !ok {
		return 0, false
	}
	sp.owned[idx].Store(true)
	sp.totalAlloc.Add(1)
	return int(idx), true
}

// put returns block idx. A block that is not handed out is refused.
func (sp *slabPool) put(idx int) bool {
	if !sp.owned[idx].CompareAndSwap(true, false) {
		return false
	}
	sp.free.Enqueue(uint32(idx))
	sp.totalFree.Add(1)
	return true
}

// index maps an arena offset to a block index of this pool, or -1.
func (sp *slabPool) index(off int) int {
	if off < sp.base || off >= sp.base+sp.count*sp.size {
		return -1
	}
	if (off-sp.base)%sp.size != 0 {
		return -1
	}
	return (off - sp.base) / sp.size
}
