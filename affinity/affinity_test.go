package affinity

import (
	"errors"
	"runtime"
	"testing"

	"github.com/momentics/hioload-rt/api"
)

func TestPinRejectsOutOfRange(t *testing.T) {
	for _, cpu := range []int{Unpinned, runtime.NumCPU()} {
		if err := Pin(cpu); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("Pin(%d) = %v, want invalid argument", cpu, err)
		}
	}
}

func TestPinCPUZero(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		err := Pin(0)
		if err == nil {
			Unpin()
		}
		done <- err
	}()
	err := <-done
	switch {
	case err == nil:
	case runtime.GOOS != "linux" && runtime.GOOS != "windows":
		if !errors.Is(err, api.ErrNotSupported) {
			t.Errorf("unsupported platform returned %v", err)
		}
	default:
		// cpusets may exclude cpu 0 even though NumCPU counts it.
		t.Skipf("pinning unavailable here: %v", err)
	}
}
