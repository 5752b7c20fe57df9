// File: core/thr/thread.go
// Package thr implements interrupt-bound threads: one fixed-capacity fiber
// queue per hardware interrupt priority.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Thread owns a slab of task slots, a FIFO run queue of slot indices, a free
// list of slot indices and a wake bitmap. Activate, the thread's interrupt
// vector, collects posted wakes and resumes each queued fiber once. Enqueue
// and WakeHandle.Post may be called from any context and never block or
// allocate; every piece of state they share with Activate is mutated through
// atomics or irq critical sections.

package thr

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/core/concurrency"
	"github.com/momentics/hioload-rt/core/fiber"
)

// MaxCapacity is the largest slab a thread can own; slot indices are 16 bits.
const MaxCapacity = 1 << 16

// State is the scheduling state of a thread.
type State uint32

const (
	Idle State = iota
	Draining
)

func (s State) String() string {
	if s == Draining {
		return "draining"
	}
	return "idle"
}

// Config describes one thread.
type Config struct {
	Name     string
	Line     int   // interrupt line the thread is bound to
	Priority uint8 // higher preempts lower
	Capacity int   // task slots; also the run queue bound
	Atomics  bool  // hardware atomics, otherwise irq critical sections
	Counters *control.Counters
}

// Thread is a scheduling unit bound to one interrupt priority.
type Thread struct {
	name     string
	line     int
	priority uint8

	slots    []slot
	free     api.Ring[uint16]
	runq     api.Ring[uint16]
	wake     wakeMap
	atomics  bool
	counters *control.Counters

	state    atomic.Uint32
	draining atomic.Bool
	cx       fiber.Context // reused by every resume; only the drain touches it
	pend     func()
	local    atomic.Pointer[any]
}

// New builds a thread with all its storage allocated up front.
func New(cfg Config) (*Thread, error) {
	if cfg.Capacity < 1 || cfg.Capacity > MaxCapacity {
		return nil, fmt.Errorf("thr %s: capacity %d: %w", cfg.Name, cfg.Capacity, api.ErrInvalidArgument)
	}
	t := &Thread{
		name:     cfg.Name,
		line:     cfg.Line,
		priority: cfg.Priority,
		slots:    make([]slot, cfg.Capacity),
		free:     concurrency.NewQueue[uint16](cfg.Capacity, cfg.Atomics),
		runq:     concurrency.NewQueue[uint16](cfg.Capacity, cfg.Atomics),
		wake:     newWakeMap(cfg.Capacity),
		atomics:  cfg.Atomics,
		counters: control.Or(cfg.Counters),
	}
	for i := 0; i < cfg.Capacity; i++ {
		t.free.Enqueue(uint16(i))
	}
	return t, nil
}

// Name returns the configured name.
func (t *Thread) Name() string { return t.name }

// Line returns the interrupt line.
func (t *Thread) Line() int { return t.line }

// Priority returns the interrupt priority.
func (t *Thread) Priority() uint8 { return t.priority }

// Capacity returns the number of task slots.
func (t *Thread) Capacity() int { return len(t.slots) }

// State returns the current scheduling state.
func (t *Thread) State() State { return State(t.state.Load()) }

// Queued returns the number of fibers waiting in the run queue.
func (t *Thread) Queued() int { return t.runq.Len() }

// Free returns the number of unused task slots.
func (t *Thread) Free() int { return t.free.Len() }

// SetPendHook installs fn, called whenever new work arrives so the owner can
// pend the thread's interrupt line. It must be installed before the thread is
// shared with other contexts.
func (t *Thread) SetPendHook(fn func()) { t.pend = fn }

func (t *Thread) signal() {
	if t.pend != nil {
		t.pend()
	}
}

// Enqueue places f at the tail of the run queue. It fails with
// api.ErrQueueFull, leaving the queue untouched, when every slot is in use.
func (t *Thread) Enqueue(f fiber.Fiber[fiber.Unit]) (fiber.WakeHandle, error) {
	if f == nil {
		return fiber.WakeHandle{}, fmt.Errorf("thr %s: nil fiber: %w", t.name, api.ErrInvalidArgument)
	}
	idx, ok := t.free.Dequeue()
	if !ok {
		t.counters.QueueFull.Add(1)
		return fiber.WakeHandle{}, api.ErrQueueFull
	}
	s := &t.slots[idx]
	s.fiber = f
	s.phase.Store(phaseQueued)
	gen := s.generation()
	if !t.runq.Enqueue(idx) {
		// Every queued index owns a slot, so the run queue cannot be fuller
		// than the slab.
		panic("thr: run queue overflow with a free slot in hand")
	}
	t.counters.FibersSpawned.Add(1)
	t.signal()
	return fiber.NewWakeHandle(t, idx, gen), nil
}

// Activate is the interrupt vector entry point. It collects posted wakes, then
// resumes every fiber queued at that moment once, in FIFO order. A call made
// while the thread is already draining is counted and ignored.
func (t *Thread) Activate() {
	if !t.draining.CompareAndSwap(false, true) {
		t.counters.Reentries.Add(1)
		return
	}
	t.state.Store(uint32(Draining))
	t.counters.SchedulerInvocations.Add(1)

	t.collect()
	for n := t.runq.Len(); n > 0; n-- {
		idx, ok := t.runq.Dequeue()
		if !ok {
			break
		}
		t.step(idx)
	}

	t.state.Store(uint32(Idle))
	t.draining.Store(false)
}

// Dropper is implemented by fibers holding registrations that must be undone
// when the fiber is discarded without completing.
type Dropper interface {
	Drop()
}

// step resumes the fiber in slot idx once and files the slot by outcome.
func (t *Thread) step(idx uint16) {
	s := &t.slots[idx]
	if s.cancelRequested() {
		t.discard(idx)
		t.counters.Cancelled.Add(1)
		return
	}
	s.phase.Store(phaseRunning)
	t.cx.Reset(fiber.NewWakeHandle(t, idx, s.generation()))
	_, done := s.fiber.Resume(&t.cx)
	t.counters.FiberResumes.Add(1)

	switch {
	case done:
		t.release(idx)
		t.counters.FibersCompleted.Add(1)
	case s.cancelRequested():
		t.discard(idx)
		t.counters.Cancelled.Add(1)
	case t.cx.Registered():
		s.phase.Store(phaseParked)
	default:
		// Nothing can ever wake it again.
		t.discard(idx)
		t.counters.Abandoned.Add(1)
	}
}

// discard releases a slot whose fiber did not complete.
func (t *Thread) discard(idx uint16) {
	if d, ok := t.slots[idx].fiber.(Dropper); ok {
		d.Drop()
	}
	t.release(idx)
}

// release retires slot idx: its generation moves on, so outstanding handles
// go stale, and the index returns to the free list.
func (t *Thread) release(idx uint16) {
	s := &t.slots[idx]
	s.fiber = nil
	s.retire(t.atomics)
	s.phase.Store(phaseFree)
	if !t.free.Enqueue(idx) {
		panic("thr: free list overflow")
	}
}

// Pending reports whether work is waiting for the next activation.
func (t *Thread) Pending() bool {
	return t.runq.Len() > 0 || t.wake.any()
}

// Stats reports the thread's queue state for diagnostics.
func (t *Thread) Stats() map[string]any {
	return map[string]any{
		"line":     t.line,
		"priority": t.priority,
		"state":    t.State().String(),
		"queued":   t.Queued(),
		"free":     t.Free(),
		"capacity": t.Capacity(),
	}
}
