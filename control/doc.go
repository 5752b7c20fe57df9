// Package control
// Author: momentics <momentics@gmail.com>
//
// Inventory counters and debug introspection layer.
//
// Provides the diagnostic side of the runtime:
//   - Process-wide monotonic counters written by the core with single atomic adds
//   - Read-only snapshots exported as a map or canonical CBOR
//   - Named debug probes registered by the facade and platform code
//
// Nothing here is persisted across a reset. This package is cross-platform and
// build-tag-partitioned as needed.
package control
