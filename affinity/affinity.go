// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// located in separate files guarded by build tags. The interrupt controller
// uses it to keep a line's dispatch goroutine on one core, so a vector always
// observes the same cache and never migrates mid-drain.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-rt/api"
)

// Unpinned is the CPU value meaning "leave the scheduler in charge".
const Unpinned = -1

// Pin locks the calling goroutine to its OS thread and restricts that thread
// to logical CPU cpuID. The caller must call Unpin from the same goroutine.
func Pin(cpuID int) error {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return fmt.Errorf("affinity: cpu %d of %d: %w", cpuID, runtime.NumCPU(), api.ErrInvalidArgument)
	}
	runtime.LockOSThread()
	if err := setAffinityPlatform(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Unpin releases the goroutine from its OS thread. The thread keeps the
// restricted mask.
func Unpin() {
	runtime.UnlockOSThread()
}
