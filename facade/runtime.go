// File: facade/runtime.go
// Unified facade layer for hioload-rt.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime aggregates every core component behind a single facade. New builds
// all of them from an immutable board description; nothing is added or
// rebound afterwards.

package facade

import (
	"context"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/momentics/hioload-rt/adapters"
	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/core/exec"
	"github.com/momentics/hioload-rt/core/fiber"
	"github.com/momentics/hioload-rt/core/irq"
	"github.com/momentics/hioload-rt/core/mmio"
	"github.com/momentics/hioload-rt/core/reg"
	"github.com/momentics/hioload-rt/core/thr"
	"github.com/momentics/hioload-rt/core/token"
	"github.com/momentics/hioload-rt/heap"
	"github.com/momentics/hioload-rt/internal/platform"
)

var log = commonlog.GetLogger("hioload.facade")

type peripheral struct {
	block *mmio.Block
	regs  map[string]register
}

type register struct {
	desc   *reg.Register
	offset uint32
}

// Runtime is the main facade type.
// It implements api.GracefulShutdown to allow unified shutdown logic.
type Runtime struct {
	config   *Config
	atomics  bool
	counters *control.Counters
	tokens   *token.Registry
	threads  *thr.Table
	ctrl     *platform.Controller
	heap     *heap.Heap
	diag     *adapters.ControlAdapter
	periph   map[string]*peripheral

	mu     sync.Mutex // protects closed
	closed bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Runtime)(nil)

// New builds the runtime described by cfg, or by DefaultConfig when cfg is
// nil. Construction errors are structured api.Error values wrapping the
// underlying sentinel.
func New(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, api.Wrap(err, "board description")
	}
	configureLogging(cfg)

	mode, err := irq.ParseMode(cfg.Atomics)
	if err != nil {
		return nil, api.Wrap(err, "board description")
	}
	rt := &Runtime{
		config:   cfg,
		atomics:  mode.Atomics(),
		counters: &control.Counters{},
		ctrl:     platform.NewController(),
		periph:   make(map[string]*peripheral, len(cfg.Peripherals)),
	}
	log.Infof("atomics mode %s (hardware atomics: %v)", mode, rt.atomics)

	if err := rt.buildPeripherals(); err != nil {
		rt.release()
		return nil, err
	}
	if err := rt.buildThreads(); err != nil {
		rt.release()
		return nil, err
	}
	rt.heap, err = heap.New(cfg.Heap.Pools, heap.Options{Atomics: rt.atomics, Counters: rt.counters})
	if err != nil {
		rt.release()
		return nil, api.Wrap(err, "heap").WithContext("pools", len(cfg.Heap.Pools))
	}

	rt.diag = adapters.NewControlAdapter(rt.counters)
	for _, t := range rt.threads.Threads() {
		t := t
		rt.diag.RegisterDebugProbe("thread."+t.Name(), func() any { return t.Stats() })
	}
	rt.diag.RegisterDebugProbe("heap", func() any { return rt.heap.Stats() })
	rt.diag.RegisterDebugProbe("irq.sections", func() any { return irq.Sections() })
	return rt, nil
}

func configureLogging(cfg *Config) {
	var path *string
	if cfg.LogFile != "" {
		path = &cfg.LogFile
	}
	commonlog.Configure(cfg.LogVerbosity, path)
}

func (rt *Runtime) buildPeripherals() error {
	ids := make([]string, 0, len(rt.config.Peripherals)+len(rt.config.Resources))
	for _, pc := range rt.config.Peripherals {
		block, err := mmio.Map(pc.Size)
		if err != nil {
			return api.Wrap(err, "peripheral "+pc.Name)
		}
		p := &peripheral{block: block, regs: make(map[string]register, len(pc.Registers))}
		rt.periph[pc.Name] = p
		for _, rc := range pc.Registers {
			desc, err := buildRegister(rc)
			if err != nil {
				return api.Wrap(err, "peripheral "+pc.Name).WithContext("register", rc.Name)
			}
			if err := block.Write32(uintptr(rc.Offset), rc.Reset); err != nil {
				return api.Wrap(err, "peripheral "+pc.Name).WithContext("register", rc.Name)
			}
			p.regs[rc.Name] = register{desc: desc, offset: rc.Offset}
		}
		ids = append(ids, pc.Name)
		log.Debugf("peripheral %s: %d bytes, %d registers", pc.Name, pc.Size, len(pc.Registers))
	}
	ids = append(ids, rt.config.Resources...)

	tokens, err := token.NewRegistry(rt.counters, ids...)
	if err != nil {
		return api.Wrap(err, "token registry")
	}
	rt.tokens = tokens
	if token.Install(tokens) {
		log.Debugf("installed process-wide token registry with %d identities", len(ids))
	}
	return nil
}

func buildRegister(rc RegisterConfig) (*reg.Register, error) {
	if len(rc.Variants) == 0 {
		return reg.Single(rc.Name, rc.Reset, fieldSpecs(rc.Fields)...)
	}
	layouts := make([]reg.Layout, len(rc.Variants))
	for i, v := range rc.Variants {
		layouts[i] = reg.Layout{Tag: v.Tag, Fields: fieldSpecs(v.Fields)}
	}
	return reg.NewRegister(rc.Name, rc.Reset, rc.Disjoint, layouts...)
}

func fieldSpecs(fs []FieldConfig) []reg.FieldSpec {
	out := make([]reg.FieldSpec, len(fs))
	for i, f := range fs {
		out[i] = reg.FieldSpec{Name: f.Name, Offset: f.Offset, Width: f.Width}
	}
	return out
}

func (rt *Runtime) buildThreads() error {
	cfgs := make([]thr.Config, len(rt.config.Threads))
	pins := make(map[string]*int)
	for i, tc := range rt.config.Threads {
		pins[tc.Name] = tc.CPU
		cfgs[i] = thr.Config{
			Name:     tc.Name,
			Line:     tc.Line,
			Priority: tc.Priority,
			Capacity: tc.Capacity,
			Atomics:  rt.atomics,
			Counters: rt.counters,
		}
	}
	table, err := thr.NewTable(cfgs...)
	if err != nil {
		return api.Wrap(err, "thread table")
	}
	rt.threads = table
	for _, t := range table.Threads() {
		if err := rt.ctrl.Bind(t.Line(), t.Priority(), t.Activate); err != nil {
			return api.Wrap(err, "interrupt binding").WithContext("thread", t.Name())
		}
		t.SetPendHook(rt.ctrl.PendFunc(t.Line()))
		if cpu := pins[t.Name()]; cpu != nil {
			if err := rt.ctrl.Pin(t.Line(), *cpu); err != nil {
				return api.Wrap(err, "interrupt binding").WithContext("thread", t.Name())
			}
		}
		log.Infof("thread %s bound to line %d, priority %d, capacity %d",
			t.Name(), t.Line(), t.Priority(), t.Capacity())
	}
	return nil
}

// Config returns the board description the runtime was built from.
func (rt *Runtime) Config() *Config { return rt.config }

// Atomics reports whether shared state uses hardware atomics.
func (rt *Runtime) Atomics() bool { return rt.atomics }

// Thread returns the thread called name.
func (rt *Runtime) Thread(name string) (*thr.Thread, error) {
	return rt.threads.Named(name)
}

// Threads returns every thread, highest priority first.
func (rt *Runtime) Threads() []*thr.Thread { return rt.threads.Threads() }

// Spawn queues f on the named thread.
func (rt *Runtime) Spawn(thread string, f fiber.Fiber[fiber.Unit]) (fiber.WakeHandle, error) {
	t, err := rt.threads.Named(thread)
	if err != nil {
		return fiber.WakeHandle{}, err
	}
	return t.Enqueue(f)
}

// SpawnFuture queues fut on the named thread of rt and returns its join
// handle.
func SpawnFuture[T any](rt *Runtime, thread string, fut exec.Future[T]) (*exec.Task[T], error) {
	t, err := rt.threads.Named(thread)
	if err != nil {
		return nil, err
	}
	return exec.Spawn(t, fut)
}

// ClaimUnique claims exclusive access to resource id.
func (rt *Runtime) ClaimUnique(id string) (token.Token, error) {
	return rt.tokens.ClaimUnique(id)
}

// ClaimShared claims shared access to resource id.
func (rt *Runtime) ClaimShared(id string) (token.Token, error) {
	return rt.tokens.ClaimShared(id)
}

// Tokens returns the runtime's claim registry.
func (rt *Runtime) Tokens() *token.Registry { return rt.tokens }

// View returns an accessor for register name of peripheral periph. The token
// must have been issued for periph; its kind decides how mutations
// synchronize.
func (rt *Runtime) View(periph, name string, tok token.Token) (*reg.View, error) {
	p, ok := rt.periph[periph]
	if !ok {
		return nil, fmt.Errorf("facade: peripheral %q: %w", periph, api.ErrNotFound)
	}
	if tok.ID() != periph {
		return nil, fmt.Errorf("facade: token %v does not grant %s: %w", tok, periph, api.ErrInvalidArgument)
	}
	r, ok := p.regs[name]
	if !ok {
		return nil, fmt.Errorf("facade: register %s.%s: %w", periph, name, api.ErrNotFound)
	}
	word, err := p.block.Word(uintptr(r.offset))
	if err != nil {
		return nil, err
	}
	return reg.NewView(word, r.desc, tok, reg.Options{Atomics: rt.atomics, Counters: rt.counters})
}

// Vector returns the interrupt entry point of line.
func (rt *Runtime) Vector(line int) (func(), error) {
	return rt.threads.Vector(line)
}

// Pend raises interrupt line as if the hardware had.
func (rt *Runtime) Pend(line int) bool { return rt.ctrl.Pend(line) }

// DispatchPending runs pending lines from the caller, highest priority first,
// until the controller is quiet.
func (rt *Runtime) DispatchPending() int { return rt.ctrl.DispatchPending() }

// Run dispatches every line concurrently until ctx is done.
func (rt *Runtime) Run(ctx context.Context) error { return rt.ctrl.Run(ctx) }

// Heap returns the allocator.
func (rt *Runtime) Heap() api.Allocator { return rt.heap }

// NewRing builds a byte stream whose storage comes from the runtime heap.
func (rt *Runtime) NewRing(size int) (*exec.Ring, error) {
	return exec.NewRing(rt.heap, size, rt.counters)
}

// Counters returns a snapshot of the inventory counters.
func (rt *Runtime) Counters() control.Snapshot { return rt.counters.Snapshot() }

// Diagnostics returns the read-only diagnostics interface.
func (rt *Runtime) Diagnostics() api.Diagnostics { return rt.diag }

// Export encodes counters and probes as canonical CBOR.
func (rt *Runtime) Export() ([]byte, error) { return rt.diag.Export() }

// Shutdown implements api.GracefulShutdown: it unmaps every peripheral window
// and the heap arena. Views and blocks obtained earlier become invalid.
// Calling Shutdown twice is a no-op.
func (rt *Runtime) Shutdown() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return nil
	}
	rt.closed = true
	err := rt.release()
	log.Infof("shutdown complete")
	return err
}

func (rt *Runtime) release() error {
	var first error
	for name, p := range rt.periph {
		if err := p.block.Close(); err != nil && first == nil {
			first = fmt.Errorf("facade: unmap %s: %w", name, err)
		}
	}
	if rt.heap != nil {
		if err := rt.heap.Close(); err != nil && first == nil {
			first = fmt.Errorf("facade: unmap heap: %w", err)
		}
	}
	return first
}
