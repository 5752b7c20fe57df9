// File: core/reg/view.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Register views. Every sub-word update is one read-modify-write that no other
// owner can interleave with: under a Unique token there is no other owner,
// under a Shared token the update is an atomic instruction or a masked
// critical section. A Unique token whose claim was converted by Share takes the
// shared path from then on.

package reg

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/core/irq"
	"github.com/momentics/hioload-rt/core/token"
)

// Options tune how a view synchronizes.
type Options struct {
	// Atomics selects hardware atomics for Shared views; otherwise critical
	// sections are used.
	Atomics  bool
	Counters *control.Counters
}

// View is the accessor for one register word.
type View struct {
	word     *uint32
	reg      *Register
	tok      token.Token
	active   atomic.Uint32
	atomics  bool
	counters *control.Counters
}

// NewView binds reg to word under tok. The view performs no write.
func NewView(word *uint32, reg *Register, tok token.Token, opts Options) (*View, error) {
	if word == nil || reg == nil {
		return nil, fmt.Errorf("reg: nil word or register: %w", api.ErrInvalidArgument)
	}
	if !tok.Valid() {
		return nil, fmt.Errorf("reg %s: unissued token: %w", reg.Name, api.ErrInvalidArgument)
	}
	return &View{
		word:     word,
		reg:      reg,
		tok:      tok,
		atomics:  opts.Atomics,
		counters: control.Or(opts.Counters),
	}, nil
}

// Register returns the description the view was built from.
func (v *View) Register() *Register { return v.reg }

// Token returns the token the view was created under.
func (v *View) Token() token.Token { return v.tok }

// Select switches the active layout. It never touches the hardware word.
func (v *View) Select(tag string) error {
	i, err := v.reg.variant(tag)
	if err != nil {
		return err
	}
	v.active.Store(uint32(i))
	return nil
}

// Variant returns the active layout tag.
func (v *View) Variant() string {
	return v.reg.layouts[v.active.Load()].tag
}

// Field looks a field up in the active layout.
func (v *View) Field(name string) (Field, error) {
	return v.reg.Field(v.Variant(), name)
}

func (v *View) check(f Field) error {
	if f.reg != v.reg {
		return fmt.Errorf("reg %s: field %q belongs to another register: %w", v.reg.Name, f.Name, api.ErrInvalidArgument)
	}
	if v.reg.Disjoint && uint32(f.variant) != v.active.Load() {
		return fmt.Errorf("reg %s.%s: active variant %q: %w", v.reg.Name, f.Name, v.Variant(), api.ErrWrongVariant)
	}
	return nil
}

// Load reads the whole word.
func (v *View) Load() uint32 {
	return atomic.LoadUint32(v.word)
}

// Store writes the whole word.
func (v *View) Store(val uint32) {
	atomic.StoreUint32(v.word, val)
}

// LoadBits returns the value of field f.
func (v *View) LoadBits(f Field) (uint32, error) {
	if err := v.check(f); err != nil {
		return 0, err
	}
	return (v.Load() >> f.Offset) & f.Max(), nil
}

// StoreBits writes val into field f leaving every other bit unchanged. A value
// wider than the field is rejected with api.ErrOutOfRange before any write.
func (v *View) StoreBits(f Field, val uint32) error {
	if err := v.check(f); err != nil {
		return err
	}
	if !f.Fits(val) {
		return fmt.Errorf("reg %s.%s: %d exceeds %d bits: %w", v.reg.Name, f.Name, val, f.Width, api.ErrOutOfRange)
	}
	if f.Whole() {
		v.Store(val)
		return nil
	}
	v.update(f.Mask(), val<<f.Offset)
	return nil
}

// SetBit sets bit n.
func (v *View) SetBit(n uint8) error {
	if n >= 32 {
		return fmt.Errorf("reg %s: bit %d: %w", v.reg.Name, n, api.ErrOutOfRange)
	}
	if !v.tok.Exclusive() && v.atomics {
		atomic.OrUint32(v.word, 1<<n)
		return nil
	}
	v.update(1<<n, 1<<n)
	return nil
}

// ClearBit clears bit n.
func (v *View) ClearBit(n uint8) error {
	if n >= 32 {
		return fmt.Errorf("reg %s: bit %d: %w", v.reg.Name, n, api.ErrOutOfRange)
	}
	if !v.tok.Exclusive() && v.atomics {
		atomic.AndUint32(v.word, ^uint32(1<<n))
		return nil
	}
	v.update(1<<n, 0)
	return nil
}

// ToggleBit inverts bit n.
func (v *View) ToggleBit(n uint8) error {
	if n >= 32 {
		return fmt.Errorf("reg %s: bit %d: %w", v.reg.Name, n, api.ErrOutOfRange)
	}
	v.modify(func(w uint32) uint32 { return w ^ 1<<n })
	return nil
}

// Modify applies fn to the word as one uninterruptible read-modify-write. fn
// may be called more than once and must be pure.
func (v *View) Modify(fn func(uint32) uint32) {
	v.modify(fn)
}

// update replaces the bits under mask with bits.
func (v *View) update(mask, bits uint32) {
	switch {
	case v.tok.Exclusive():
		w := atomic.LoadUint32(v.word)
		atomic.StoreUint32(v.word, w&^mask|bits)
	case v.atomics:
		for {
			w := atomic.LoadUint32(v.word)
			if atomic.CompareAndSwapUint32(v.word, w, w&^mask|bits) {
				return
			}
			v.counters.CASRetries.Add(1)
		}
	default:
		g := irq.Enter()
		w := atomic.LoadUint32(v.word)
		atomic.StoreUint32(v.word, w&^mask|bits)
		g.Exit()
	}
}

func (v *View) modify(fn func(uint32) uint32) {
	switch {
	case v.tok.Exclusive():
		atomic.StoreUint32(v.word, fn(atomic.LoadUint32(v.word)))
	case v.atomics:
		for {
			w := atomic.LoadUint32(v.word)
			if atomic.CompareAndSwapUint32(v.word, w, fn(w)) {
				return
			}
			v.counters.CASRetries.Add(1)
		}
	default:
		g := irq.Enter()
		atomic.StoreUint32(v.word, fn(atomic.LoadUint32(v.word)))
		g.Exit()
	}
}

// Reset stores the register's reset value.
func (v *View) Reset() {
	v.Store(v.reg.Reset)
}
