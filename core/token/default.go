// File: core/token/default.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package token

import "sync/atomic"

var defaultRegistry atomic.Pointer[Registry]

// Install makes r the process-wide registry. It succeeds once; the hardware
// exists once, and so does its claim table.
func Install(r *Registry) bool {
	return defaultRegistry.CompareAndSwap(nil, r)
}

// Default returns the process-wide registry, or nil before Install.
func Default() *Registry {
	return defaultRegistry.Load()
}
