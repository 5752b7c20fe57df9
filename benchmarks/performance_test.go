// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-rt components.

package benchmarks

import (
	"testing"

	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/core/concurrency"
	"github.com/momentics/hioload-rt/core/fiber"
	"github.com/momentics/hioload-rt/core/reg"
	"github.com/momentics/hioload-rt/core/thr"
	"github.com/momentics/hioload-rt/core/token"
	"github.com/momentics/hioload-rt/facade"
	"github.com/momentics/hioload-rt/heap"
)

// BenchmarkQueueThroughput compares the lock-free queue with the masked ring.
func BenchmarkQueueThroughput(b *testing.B) {
	for _, mode := range []struct {
		name    string
		atomics bool
	}{{"hardware", true}, {"soft", false}} {
		b.Run(mode.name, func(b *testing.B) {
			q := concurrency.NewQueue[int](1024, mode.atomics)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					if !q.Enqueue(i) {
						q.Dequeue()
					}
					i++
				}
			})
		})
	}
}

// BenchmarkStoreBits measures a field write under each ownership mode.
func BenchmarkStoreBits(b *testing.B) {
	r, err := reg.Single("CR", 0, reg.FieldSpec{Name: "MODE", Offset: 4, Width: 3})
	if err != nil {
		b.Fatal(err)
	}
	tokens, _ := token.NewRegistry(nil, "P", "Q")
	unique, _ := tokens.ClaimUnique("P")
	shared, _ := tokens.ClaimShared("Q")
	for _, mode := range []struct {
		name    string
		tok     token.Token
		atomics bool
	}{
		{"unique", unique, true},
		{"shared-atomic", shared, true},
		{"shared-soft", shared, false},
	} {
		b.Run(mode.name, func(b *testing.B) {
			var word uint32
			v, err := reg.NewView(&word, r, mode.tok, reg.Options{Atomics: mode.atomics})
			if err != nil {
				b.Fatal(err)
			}
			f, _ := v.Field("MODE")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = v.StoreBits(f, uint32(i)&7)
			}
		})
	}
}

// BenchmarkHeapAcquireRelease tests allocator round trips.
func BenchmarkHeapAcquireRelease(b *testing.B) {
	h, err := heap.New([]heap.PoolSpec{{Size: 64, Count: 256}}, heap.Options{Atomics: true})
	if err != nil {
		b.Fatal(err)
	}
	defer h.Close()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			blk, err := h.Acquire(48, 8)
			if err != nil {
				continue
			}
			_ = h.Release(blk, 48, 8)
		}
	})
}

// BenchmarkSpawnDrain measures enqueue plus one activation per fiber.
func BenchmarkSpawnDrain(b *testing.B) {
	th, err := thr.New(thr.Config{Name: "bench", Capacity: 64, Atomics: true, Counters: &control.Counters{}})
	if err != nil {
		b.Fatal(err)
	}
	done := fiber.Ready(fiber.Unit{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = th.Enqueue(done)
		th.Activate()
	}
}

// BenchmarkWakeRoundTrip parks a fiber and wakes it repeatedly.
func BenchmarkWakeRoundTrip(b *testing.B) {
	th, _ := thr.New(thr.Config{Name: "bench", Capacity: 4, Atomics: true})
	var h fiber.WakeHandle
	parked := fiber.Func(func(cx *fiber.Context) (fiber.Unit, bool) {
		h = cx.Waker()
		return fiber.Unit{}, false
	})
	if _, err := th.Enqueue(parked); err != nil {
		b.Fatal(err)
	}
	th.Activate()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Post()
		th.Activate()
	}
}

// BenchmarkFacadeDispatch tests end-to-end spawn and dispatch through the
// facade.
func BenchmarkFacadeDispatch(b *testing.B) {
	rt, err := facade.New(nil)
	if err != nil {
		b.Fatal(err)
	}
	defer rt.Shutdown()
	done := fiber.Ready(fiber.Unit{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rt.Spawn("systick", done); err != nil {
			b.Fatal(err)
		}
		rt.DispatchPending()
	}
}
