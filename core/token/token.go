// File: core/token/token.go
// Package token issues ownership proofs for hardware and software resources.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Unique token is handed out at most once per identity for the lifetime of
// its Registry. Shared tokens may be duplicated freely and never exclude one
// another, but they never coexist with a live Unique token: an identity is
// either held exclusively or shared. Share converts the Unique holder's claim
// into a shared one and the old Unique token stops granting exclusivity. The
// set of identities is fixed when the Registry is built.

package token

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
)

// Kind distinguishes exclusive from shared access.
type Kind uint8

const (
	// Shared grants concurrent access; mutations must synchronize.
	Shared Kind = iota
	// Unique grants exclusive access; no synchronization is needed.
	Unique
)

func (k Kind) String() string {
	if k == Unique {
		return "unique"
	}
	return "shared"
}

// Token proves the holder's right to access one resource.
type Token struct {
	id   string
	kind Kind
	c    *claim
}

// ID returns the resource identity.
func (t Token) ID() string { return t.id }

// Kind returns the access variant.
func (t Token) Kind() Kind { return t.kind }

// IsUnique reports whether t grants exclusive access.
func (t Token) IsUnique() bool { return t.kind == Unique }

// Valid reports whether t was issued by a registry.
func (t Token) Valid() bool { return t.id != "" }

// Exclusive reports whether t still grants contention-free access: it is a
// Unique token whose claim has not been converted by Share.
func (t Token) Exclusive() bool {
	return t.kind == Unique && t.c != nil && t.c.state.Load() == claimUnique
}

// Share consumes the exclusive claim behind t and returns a Shared token for
// the same identity. Afterwards t, and every copy of it, reports
// Exclusive() == false, and further ClaimShared calls for the identity
// succeed. The identity stays claimed: no second Unique token is issued.
func (t Token) Share() Token {
	if t.c != nil {
		t.c.state.CompareAndSwap(claimUnique, claimShared)
	}
	return Token{id: t.id, kind: Shared, c: t.c}
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%s)", t.id, t.kind)
}

// claim states; transitions are free->unique, free->shared and unique->shared.
const (
	claimFree uint32 = iota
	claimUnique
	claimShared
)

type claim struct {
	state atomic.Uint32
}

// Registry tracks claim flags for a fixed set of identities.
type Registry struct {
	claims   map[string]*claim // read-only after construction
	counters *control.Counters
}

// NewRegistry declares ids. Duplicates and empty ids are rejected.
func NewRegistry(counters *control.Counters, ids ...string) (*Registry, error) {
	r := &Registry{
		claims:   make(map[string]*claim, len(ids)),
		counters: control.Or(counters),
	}
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("token: empty identity: %w", api.ErrInvalidArgument)
		}
		if _, dup := r.claims[id]; dup {
			return nil, fmt.Errorf("token: identity %q declared twice: %w", id, api.ErrInvalidArgument)
		}
		r.claims[id] = &claim{}
	}
	return r, nil
}

// ClaimUnique returns the one Unique token for id. Every call after the first
// successful one fails with api.ErrAlreadyTaken, even under racing callers, and
// so does a call made after the identity was claimed shared.
func (r *Registry) ClaimUnique(id string) (Token, error) {
	c, ok := r.claims[id]
	if !ok {
		return Token{}, fmt.Errorf("token: %q: %w", id, api.ErrNotFound)
	}
	if !c.state.CompareAndSwap(claimFree, claimUnique) {
		r.counters.ClaimConflicts.Add(1)
		return Token{}, fmt.Errorf("token: %q: %w", id, api.ErrAlreadyTaken)
	}
	r.counters.Claims.Add(1)
	return Token{id: id, kind: Unique, c: c}, nil
}

// ClaimShared returns a Shared token for id. Any number of Shared tokens may be
// issued, but while a Unique token for id is live the call fails with
// api.ErrAlreadyTaken.
func (r *Registry) ClaimShared(id string) (Token, error) {
	c, ok := r.claims[id]
	if !ok {
		return Token{}, fmt.Errorf("token: %q: %w", id, api.ErrNotFound)
	}
	for {
		switch c.state.Load() {
		case claimShared:
		case claimUnique:
			r.counters.ClaimConflicts.Add(1)
			return Token{}, fmt.Errorf("token: %q: unique holder live: %w", id, api.ErrAlreadyTaken)
		default:
			if !c.state.CompareAndSwap(claimFree, claimShared) {
				continue
			}
		}
		r.counters.Claims.Add(1)
		return Token{id: id, kind: Shared, c: c}, nil
	}
}

// Taken reports whether id has been claimed in either kind.
func (r *Registry) Taken(id string) bool {
	c, ok := r.claims[id]
	return ok && c.state.Load() != claimFree
}

// SharedNow reports whether id is currently held in shared mode.
func (r *Registry) SharedNow(id string) bool {
	c, ok := r.claims[id]
	return ok && c.state.Load() == claimShared
}

// Declared reports whether id is known to the registry.
func (r *Registry) Declared(id string) bool {
	_, ok := r.claims[id]
	return ok
}

// IDs returns the declared identities in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.claims))
	for id := range r.claims {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
