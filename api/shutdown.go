// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown stops dispatching and releases what the component holds.
type GracefulShutdown interface {
	Shutdown() error
}
