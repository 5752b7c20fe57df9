// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Board description. Everything the runtime builds at startup, threads,
// peripherals with their register layouts and the heap pools, comes from this
// description; none of it changes afterwards.

package facade

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/heap"
)

// Config is the board description.
type Config struct {
	Atomics      string             `toml:"atomics"`       // "auto", "hardware" or "soft"
	LogVerbosity int                `toml:"log_verbosity"` // commonlog verbosity
	LogFile      string             `toml:"log_file"`      // empty logs to stderr
	Resources    []string           `toml:"resources"`     // software resource identities
	Threads      []ThreadConfig     `toml:"thread"`
	Peripherals  []PeripheralConfig `toml:"peripheral"`
	Heap         HeapConfig         `toml:"heap"`
}

// ThreadConfig binds one thread to one interrupt line.
type ThreadConfig struct {
	Name     string `toml:"name"`
	Line     int    `toml:"line"`
	Priority uint8  `toml:"priority"`
	Capacity int    `toml:"capacity"`
	CPU      *int   `toml:"cpu"` // pin the dispatch goroutine; nil leaves it free
}

// PeripheralConfig describes one peripheral's register window.
type PeripheralConfig struct {
	Name      string           `toml:"name"`
	Size      int              `toml:"size"` // bytes
	Registers []RegisterConfig `toml:"register"`
}

// RegisterConfig describes one register. A register has either plain Fields
// or tagged Variants.
type RegisterConfig struct {
	Name     string          `toml:"name"`
	Offset   uint32          `toml:"offset"`
	Reset    uint32          `toml:"reset"`
	Disjoint bool            `toml:"disjoint"`
	Fields   []FieldConfig   `toml:"field"`
	Variants []VariantConfig `toml:"variant"`
}

// VariantConfig is one tagged layout of a multi-variant register.
type VariantConfig struct {
	Tag    string        `toml:"tag"`
	Fields []FieldConfig `toml:"field"`
}

// FieldConfig is one bit field.
type FieldConfig struct {
	Name   string `toml:"name"`
	Offset uint8  `toml:"offset"`
	Width  uint8  `toml:"width"`
}

// HeapConfig lists the allocator size classes.
type HeapConfig struct {
	Pools []heap.PoolSpec `toml:"pool"`
}

// DefaultConfig returns a minimal board: a background thread, a tick thread
// and a small heap, with atomics chosen by detection.
func DefaultConfig() *Config {
	return &Config{
		Atomics:      "auto",
		LogVerbosity: 0,
		Threads: []ThreadConfig{
			{Name: "background", Line: 0, Priority: 0, Capacity: 16}, // lowest priority, run when idle
			{Name: "systick", Line: 15, Priority: 255, Capacity: 4},  // tick handler, preempts everything
		},
		Heap: HeapConfig{Pools: []heap.PoolSpec{
			{Size: 32, Count: 32},
			{Size: 256, Count: 8},
			{Size: 1024, Count: 4},
		}},
	}
}

// LoadConfig reads a TOML board description from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("facade: read board %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("facade: board %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a TOML board description.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{Atomics: "auto"}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("facade: decode board: %v: %w", err, api.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints the component constructors do not.
func (c *Config) Validate() error {
	if len(c.Threads) == 0 {
		return fmt.Errorf("facade: board declares no threads: %w", api.ErrInvalidArgument)
	}
	if len(c.Heap.Pools) == 0 {
		return fmt.Errorf("facade: board declares no heap pools: %w", api.ErrInvalidArgument)
	}
	names := make(map[string]bool)
	for _, p := range c.Peripherals {
		if p.Name == "" || names[p.Name] {
			return fmt.Errorf("facade: peripheral %q missing or duplicated: %w", p.Name, api.ErrInvalidArgument)
		}
		names[p.Name] = true
		if p.Size <= 0 || p.Size%4 != 0 {
			return fmt.Errorf("facade: peripheral %s: size %d: %w", p.Name, p.Size, api.ErrInvalidArgument)
		}
		regs := make(map[string]bool, len(p.Registers))
		for _, r := range p.Registers {
			if r.Name == "" || regs[r.Name] {
				return fmt.Errorf("facade: %s: register %q missing or duplicated: %w", p.Name, r.Name, api.ErrInvalidArgument)
			}
			regs[r.Name] = true
			if r.Offset%4 != 0 || int(r.Offset)+4 > p.Size {
				return fmt.Errorf("facade: %s.%s: offset %#x: %w", p.Name, r.Name, r.Offset, api.ErrInvalidArgument)
			}
			if len(r.Fields) > 0 && len(r.Variants) > 0 {
				return fmt.Errorf("facade: %s.%s: both fields and variants: %w", p.Name, r.Name, api.ErrInvalidArgument)
			}
		}
	}
	for _, id := range c.Resources {
		if names[id] {
			return fmt.Errorf("facade: resource %q shadows a peripheral: %w", id, api.ErrInvalidArgument)
		}
	}
	return nil
}
