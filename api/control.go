// File: api/control.go
// Package api defines the diagnostics interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Diagnostics exposes read-only runtime counters and probes.
// There is no SetConfig: layouts, capacities and bindings are fixed at build time.
type Diagnostics interface {
	// Stats returns counters and probe values keyed by name.
	Stats() map[string]any
	// Export encodes the current snapshot for off-target tooling.
	Export() ([]byte, error)
	// RegisterDebugProbe adds a named read-only probe.
	RegisterDebugProbe(name string, fn func() any)
}
