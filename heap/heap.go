// File: heap/heap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package heap

import (
	"fmt"
	"sort"
	"sync/atomic"
	"unsafe"

	"github.com/tliron/commonlog"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/core/mmio"
)

var log = commonlog.GetLogger("hioload.heap")

// poolAlign is the arena alignment of every pool's first block.
const poolAlign = 64

// PoolSpec declares one size class.
type PoolSpec struct {
	Size  int `toml:"size"`
	Count int `toml:"count"`
}

// Options tune the heap.
type Options struct {
	Atomics  bool
	Counters *control.Counters
}

// Heap is a fixed-block allocator implementing api.Allocator.
type Heap struct {
	arena    *mmio.Block
	pools    []*slabPool // ascending block size
	failures atomic.Uint64
	counters *control.Counters
}

var _ api.Allocator = (*Heap)(nil)

// New maps an arena large enough for every pool and carves it up.
func New(specs []PoolSpec, opts Options) (*Heap, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("heap: no pools: %w", api.ErrInvalidArgument)
	}
	sorted := append([]PoolSpec(nil), specs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size < sorted[j].Size })

	total := 0
	for i, s := range sorted {
		if s.Size <= 0 || s.Count <= 0 {
			return nil, fmt.Errorf("heap: pool %d: size %d count %d: %w", i, s.Size, s.Count, api.ErrInvalidArgument)
		}
		if i > 0 && sorted[i-1].Size == s.Size {
			return nil, fmt.Errorf("heap: size class %d declared twice: %w", s.Size, api.ErrInvalidArgument)
		}
		total = alignUp(total, poolAlign) + s.Size*s.Count
	}

	arena, err := mmio.Map(total)
	if err != nil {
		return nil, fmt.Errorf("heap: arena: %w", err)
	}
	h := &Heap{arena: arena, counters: control.Or(opts.Counters)}
	off := 0
	for _, s := range sorted {
		off = alignUp(off, poolAlign)
		block, err := arena.Bytes(off, s.Size)
		if err != nil {
			arena.Close()
			return nil, err
		}
		addr := uintptr(unsafe.Pointer(&block[0]))
		h.pools = append(h.pools, newSlabPool(s.Size, off, s.Count, addr, opts.Atomics))
		off += s.Size * s.Count
	}
	log.Infof("arena of %d bytes (mapped=%v), %d size classes", total, arena.Mapped(), len(h.pools))
	return h, nil
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

// Acquire returns a block from the smallest class satisfying size and align,
// falling back to larger classes when it is exhausted.
func (h *Heap) Acquire(size, align int) ([]byte, error) {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("heap: acquire size %d align %d: %w", size, align, api.ErrInvalidArgument)
	}
	for _, p := range h.pools {
		if !p.fits(size, align) {
			continue
		}
		idx, ok := p.get()
		if !ok {
			continue
		}
		block, err := h.arena.Bytes(p.base+idx*p.size, p.size)
		if err != nil {
			p.put(idx)
			return nil, err
		}
		h.counters.Allocations.Add(1)
		return block[:size], nil
	}
	h.failures.Add(1)
	h.counters.AllocFailures.Add(1)
	return nil, api.ErrOutOfMemory
}

// Release returns a block obtained from Acquire.
func (h *Heap) Release(block []byte, size, align int) error {
	off := h.arena.Offset(block[:cap(block)])
	if off < 0 {
		return fmt.Errorf("heap: block not from this heap: %w", api.ErrInvalidArgument)
	}
	for _, p := range h.pools {
		idx := p.index(off)
		if idx < 0 {
			continue
		}
		if !p.fits(size, align) {
			return fmt.Errorf("heap: release size %d align %d into class %d: %w", size, align, p.size, api.ErrInvalidArgument)
		}
		if !p.put(idx) {
			return fmt.Errorf("heap: block at %#x released twice: %w", off, api.ErrInvalidArgument)
		}
		h.counters.Releases.Add(1)
		return nil
	}
	return fmt.Errorf("heap: offset %#x is not a block start: %w", off, api.ErrInvalidArgument)
}

// Stats reports allocation accounting across all classes.
func (h *Heap) Stats() api.AllocatorStats {
	st := api.AllocatorStats{
		Failures: h.failures.Load(),
		Classes:  make(map[int]uint64, len(h.pools)),
	}
	for _, p := range h.pools {
		a, f := p.totalAlloc.Load(), p.totalFree.Load()
		st.TotalAlloc += a
		st.TotalFree += f
		st.Classes[p.size] = uint64(p.free.Len())
	}
	st.InUse = st.TotalAlloc - st.TotalFree
	return st
}

// Close unmaps the arena. Outstanding blocks become invalid.
func (h *Heap) Close() error {
	return h.arena.Close()
}
