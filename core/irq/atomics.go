// File: core/irq/atomics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Atomics capability selection. Cortex-M0 class parts lack exclusive
// load/store, so every shared mutation has a critical-section fallback.

package irq

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-rt/api"
)

// Mode selects how shared state is mutated.
type Mode uint8

const (
	// ModeAuto detects the capability of the running CPU.
	ModeAuto Mode = iota
	// ModeHardware uses atomic instructions.
	ModeHardware
	// ModeSoft uses interrupt-masking critical sections.
	ModeSoft
)

func (m Mode) String() string {
	switch m {
	case ModeHardware:
		return "hardware"
	case ModeSoft:
		return "soft"
	default:
		return "auto"
	}
}

// ParseMode decodes the board description spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "hardware", "atomics":
		return ModeHardware, nil
	case "soft", "critical":
		return ModeSoft, nil
	}
	return ModeAuto, fmt.Errorf("atomics mode %q: %w", s, api.ErrInvalidArgument)
}

// DetectAtomics reports whether the CPU offers single-instruction atomic
// read-modify-write.
func DetectAtomics() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return true
	case "arm64":
		return cpu.ARM64.HasATOMICS
	default:
		return false
	}
}

// Atomics resolves m to a concrete choice: true means hardware atomics.
func (m Mode) Atomics() bool {
	switch m {
	case ModeHardware:
		return true
	case ModeSoft:
		return false
	default:
		return DetectAtomics()
	}
}
