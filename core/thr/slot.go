// File: core/thr/slot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package thr

import (
	"sync/atomic"

	"github.com/momentics/hioload-rt/core/fiber"
	"github.com/momentics/hioload-rt/core/irq"
)

// Slot phases. Only Enqueue moves a slot out of phaseFree; every other
// transition happens inside Activate.
const (
	phaseFree uint32 = iota
	phaseQueued
	phaseRunning
	phaseParked
)

// Slot word layout: generation in the upper 32 bits, flags below.
const (
	flagWake   uint64 = 1 << 0
	flagCancel uint64 = 1 << 1
	flagMask   uint64 = 1<<32 - 1
)

type slot struct {
	word  atomic.Uint64
	phase atomic.Uint32
	fiber fiber.Fiber[fiber.Unit]
}

func (s *slot) generation() uint32 {
	return uint32(s.word.Load() >> 32)
}

func (s *slot) cancelRequested() bool {
	return s.word.Load()&flagCancel != 0
}

// mark sets flag if the slot is still at gen. It reports false for a stale
// generation and true otherwise; fresh is true when the flag was not already
// set.
func (s *slot) mark(gen uint32, flag uint64, atomics bool) (live, fresh bool) {
	if !atomics {
		g := irq.Enter()
		defer g.Exit()
		w := s.word.Load()
		if uint32(w>>32) != gen {
			return false, false
		}
		if w&flag != 0 {
			return true, false
		}
		s.word.Store(w | flag)
		return true, true
	}
	for {
		w := s.word.Load()
		if uint32(w>>32) != gen {
			return false, false
		}
		if w&flag != 0 {
			return true, false
		}
		if s.word.CompareAndSwap(w, w|flag) {
			return true, true
		}
	}
}

// consumeWake clears the wake flag and reports whether it was set.
func (s *slot) consumeWake(atomics bool) bool {
	if !atomics {
		g := irq.Enter()
		defer g.Exit()
		w := s.word.Load()
		s.word.Store(w &^ flagWake)
		return w&flagWake != 0
	}
	for {
		w := s.word.Load()
		if w&flagWake == 0 {
			return false
		}
		if s.word.CompareAndSwap(w, w&^flagWake) {
			return true
		}
	}
}

// retire advances the generation and clears all flags.
func (s *slot) retire(atomics bool) {
	if !atomics {
		g := irq.Enter()
		s.word.Store((s.word.Load() &^ flagMask) + 1<<32)
		g.Exit()
		return
	}
	for {
		w := s.word.Load()
		if s.word.CompareAndSwap(w, (w&^flagMask)+1<<32) {
			return
		}
	}
}
