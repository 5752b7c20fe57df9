// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry for internal inspection. Probes run on the diagnostics
// path only, never from interrupt context, and a failing probe must not take
// the rest of the dump with it.

package control

import (
	"fmt"
	"sort"
	"sync"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// RegisterProbe inserts a named debug hook, replacing any previous one. A nil
// fn removes the probe.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if fn == nil {
		delete(dp.probes, name)
		return
	}
	dp.probes[name] = fn
}

// Names returns registered probe names in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	dp.mu.RUnlock()
	sort.Strings(names)
	return names
}

// DumpState evaluates every probe into dst and returns it; a nil dst gets a
// fresh map. Keys are prefixed with prefix. A probe that panics reports the
// panic text as its value.
func (dp *DebugProbes) DumpState(dst map[string]any, prefix string) map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	if dst == nil {
		dst = make(map[string]any, len(fns))
	}
	for k, fn := range fns {
		dst[prefix+k] = evaluate(fn)
	}
	return dst
}

func evaluate(fn func() any) (v any) {
	defer func() {
		if r := recover(); r != nil {
			v = fmt.Sprintf("probe panic: %v", r)
		}
	}()
	return fn()
}
