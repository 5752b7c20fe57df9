// File: core/thr/wake.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wake delivery. A post sets the slot's wake flag and then the slot's bit in
// the summary bitmap. The drain swaps each bitmap word to zero and consumes
// the flags it finds; a bit whose flag is already gone belongs to a retired
// generation and is ignored.

package thr

import (
	"math/bits"
	"sync/atomic"

	"github.com/momentics/hioload-rt/core/irq"
)

type wakeMap struct {
	words []atomic.Uint32
}

func newWakeMap(capacity int) wakeMap {
	return wakeMap{words: make([]atomic.Uint32, (capacity+31)/32)}
}

func (m *wakeMap) set(idx uint16, atomics bool) {
	w := &m.words[idx/32]
	bit := uint32(1) << (idx % 32)
	if atomics {
		w.Or(bit)
		return
	}
	g := irq.Enter()
	w.Store(w.Load() | bit)
	g.Exit()
}

func (m *wakeMap) take(i int, atomics bool) uint32 {
	if atomics {
		return m.words[i].Swap(0)
	}
	g := irq.Enter()
	v := m.words[i].Load()
	m.words[i].Store(0)
	g.Exit()
	return v
}

func (m *wakeMap) any() bool {
	for i := range m.words {
		if m.words[i].Load() != 0 {
			return true
		}
	}
	return false
}

// Post implements fiber.Target. Posting to a slot that has completed or been
// cancelled since the handle was made has no effect.
func (t *Thread) Post(idx uint16, gen uint32) {
	if int(idx) >= len(t.slots) {
		t.counters.StaleWakes.Add(1)
		return
	}
	live, fresh := t.slots[idx].mark(gen, flagWake, t.atomics)
	if !live {
		t.counters.StaleWakes.Add(1)
		return
	}
	if !fresh {
		return
	}
	t.counters.WakesPosted.Add(1)
	t.wake.set(idx, t.atomics)
	t.signal()
}

// Cancel asks the drain to discard the task in slot idx at generation gen. It
// reports whether the request reached a live task. The slot is released on
// the next activation, before the fiber would be resumed again.
func (t *Thread) Cancel(idx uint16, gen uint32) bool {
	if int(idx) >= len(t.slots) {
		return false
	}
	live, fresh := t.slots[idx].mark(gen, flagCancel, t.atomics)
	if !live {
		return false
	}
	if fresh {
		// A parked task only leaves its slot through the run queue.
		t.Post(idx, gen)
	}
	return true
}

// collect moves every parked slot with a consumed wake onto the run queue.
func (t *Thread) collect() {
	for i := range t.wake.words {
		pending := t.wake.take(i, t.atomics)
		for pending != 0 {
			b := bits.TrailingZeros32(pending)
			pending &^= 1 << b
			idx := uint16(i*32 + b)
			s := &t.slots[idx]
			if !s.consumeWake(t.atomics) {
				continue
			}
			if s.phase.Load() != phaseParked {
				// Already queued: it runs in this drain anyway.
				continue
			}
			s.phase.Store(phaseQueued)
			if !t.runq.Enqueue(idx) {
				panic("thr: run queue overflow while collecting wakes")
			}
		}
	}
}
