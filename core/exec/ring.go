// File: core/exec/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Byte stream from one producer context to one consumer task. The storage is
// acquired from an allocator when the ring is built and returned on Close;
// Write and Read never allocate. Head and tail are only ever loaded and
// stored, never read-modify-written, so the ring needs no atomics capability.

package exec

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/core/fiber"
)

// Ring is a single-producer single-consumer byte stream.
type Ring struct {
	alloc    api.Allocator
	buf      []byte
	size     int
	head     atomic.Uint64 // consumer position
	tail     atomic.Uint64 // producer position
	closed   atomic.Bool
	reader   Waker
	counters *control.Counters
}

// NewRing acquires size bytes from alloc. Exhaustion is reported as
// api.ErrOutOfMemory.
func NewRing(alloc api.Allocator, size int, counters *control.Counters) (*Ring, error) {
	if alloc == nil || size < 1 {
		return nil, fmt.Errorf("exec: ring of %d bytes: %w", size, api.ErrInvalidArgument)
	}
	buf, err := alloc.Acquire(size, 1)
	if err != nil {
		return nil, fmt.Errorf("exec: ring storage: %w", err)
	}
	return &Ring{alloc: alloc, buf: buf[:size], size: size, counters: control.Or(counters)}, nil
}

// Cap returns the storage size.
func (r *Ring) Cap() int { return r.size }

// Len returns the number of unread bytes.
func (r *Ring) Len() int { return int(r.tail.Load() - r.head.Load()) }

// Write copies as much of p as fits and wakes the reader. Bytes that do not
// fit are dropped and counted as overflow. It returns the number written.
func (r *Ring) Write(p []byte) int {
	if r.closed.Load() {
		return 0
	}
	tail := r.tail.Load()
	free := r.size - int(tail-r.head.Load())
	n := len(p)
	if n > free {
		r.counters.StreamOverflows.Add(uint64(n - free))
		n = free
	}
	for i := 0; i < n; i++ {
		r.buf[(tail+uint64(i))%uint64(r.size)] = p[i]
	}
	if n > 0 {
		r.tail.Store(tail + uint64(n))
		r.reader.Wake()
	}
	return n
}

// WriteByte writes one byte, dropping it on overflow.
func (r *Ring) WriteByte(b byte) error {
	if r.Write([]byte{b}) == 0 {
		return api.ErrQueueFull
	}
	return nil
}

// TryRead copies unread bytes into p without waiting.
func (r *Ring) TryRead(p []byte) int {
	head := r.head.Load()
	avail := int(r.tail.Load() - head)
	n := len(p)
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		p[i] = r.buf[(head+uint64(i))%uint64(r.size)]
	}
	if n > 0 {
		r.head.Store(head + uint64(n))
	}
	return n
}

// Read returns a future that fills p with at least one byte. After Close the
// remaining bytes are still delivered, then the future resolves with
// api.ErrClosed.
func (r *Ring) Read(p []byte) *RingRead {
	return &RingRead{ring: r, p: p}
}

// RingRead is the future returned by Read.
type RingRead struct {
	ring *Ring
	p    []byte
}

// Poll implements Future.
func (rr *RingRead) Poll(w fiber.WakeHandle) (api.Result[int], bool) {
	if res, ok := rr.try(); ok {
		return res, true
	}
	rr.ring.reader.Register(w)
	if res, ok := rr.try(); ok {
		rr.ring.reader.Clear()
		return res, true
	}
	return api.Result[int]{}, false
}

func (rr *RingRead) try() (api.Result[int], bool) {
	if n := rr.ring.TryRead(rr.p); n > 0 {
		return api.Ok(n), true
	}
	if rr.ring.closed.Load() {
		return api.Fail[int](api.ErrClosed), true
	}
	return api.Result[int]{}, false
}

// Drop deregisters a discarded reader.
func (rr *RingRead) Drop() { rr.ring.reader.Clear() }

// Close stops the producer side and wakes the reader.
func (r *Ring) Close() {
	if r.closed.CompareAndSwap(false, true) {
		r.reader.Wake()
	}
}

// Release closes the ring and returns its storage to the allocator. Nothing
// may touch the ring afterwards.
func (r *Ring) Release() error {
	r.Close()
	if r.buf == nil {
		return nil
	}
	buf := r.buf
	r.buf = nil
	return r.alloc.Release(buf, r.size, 1)
}
