// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Diagnostics adapter implementing api.Diagnostics using control package primitives.

package adapters

import (
	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
)

// ControlAdapter is the runtime's api.Diagnostics.
type ControlAdapter struct {
	counters *control.Counters
	debug    *control.DebugProbes
}

var _ api.Diagnostics = (*ControlAdapter)(nil)

// NewControlAdapter exposes counters plus platform and registered probes.
func NewControlAdapter(counters *control.Counters) *ControlAdapter {
	adapter := &ControlAdapter{
		counters: control.Or(counters),
		debug:    control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

// Stats merges counter values and probe output; probe keys carry a "debug."
// prefix so they never collide with counter names.
func (c *ControlAdapter) Stats() map[string]any {
	return c.debug.DumpState(c.counters.Snapshot().Map(), "debug.")
}

// Export encodes counters and unprefixed probe output as one CBOR report.
func (c *ControlAdapter) Export() ([]byte, error) {
	return control.MarshalReport(control.Report{
		Counters: c.counters.Snapshot(),
		Probes:   c.debug.DumpState(nil, ""),
	})
}

// RegisterDebugProbe adds or replaces a probe; nil removes it.
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// Probes returns the names of registered probes.
func (c *ControlAdapter) Probes() []string {
	return c.debug.Names()
}
