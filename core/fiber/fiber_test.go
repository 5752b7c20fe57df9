package fiber

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-rt/api"
)

type recorder struct {
	posts []uint16
}

func (r *recorder) Post(slot uint16, gen uint32) { r.posts = append(r.posts, slot) }

// countdown completes after n pending steps, registering a wake each time.
type countdown struct {
	n     int
	value int
}

func (c *countdown) Resume(cx *Context) (int, bool) {
	if c.n == 0 {
		return c.value, true
	}
	c.n--
	cx.Waker()
	return 0, false
}

func TestContextRegistration(t *testing.T) {
	rec := &recorder{}
	cx := NewContext(NewWakeHandle(rec, 7, 1))
	if cx.Registered() {
		t.Fatal("fresh context registered")
	}
	h := cx.Waker()
	if !cx.Registered() || !h.Valid() {
		t.Fatal("Waker did not register")
	}
	h.Post()
	cx.Reset(NewWakeHandle(rec, 3, 2))
	if cx.Registered() {
		t.Fatal("Reset kept registration")
	}
	cx.Yield()
	if !cx.Registered() {
		t.Fatal("Yield must register")
	}
	if len(rec.posts) != 2 || rec.posts[0] != 7 || rec.posts[1] != 3 {
		t.Errorf("posts = %v", rec.posts)
	}
	if slot, gen := h.Slot(); slot != 7 || gen != 1 {
		t.Errorf("Slot = %d,%d", slot, gen)
	}
	WakeHandle{}.Post() // zero handle is a no-op
}

func TestThenAndMap(t *testing.T) {
	f := Map(Then[int, int](&countdown{n: 2, value: 1}, &countdown{n: 1, value: 20}),
		func(v int) string { return map[int]string{20: "twenty"}[v] })
	steps := 0
	cx := NewContext(WakeHandle{})
	for {
		cx.Reset(WakeHandle{})
		steps++
		if v, ok := f.Resume(cx); ok {
			if v != "twenty" {
				t.Errorf("value = %q", v)
			}
			break
		}
		if !cx.Registered() {
			t.Fatal("pending step without wake")
		}
	}
	if steps != 4 {
		t.Errorf("steps = %d, want 4", steps)
	}
}

func TestAndThenPassesValue(t *testing.T) {
	f := AndThen[int, int](&countdown{n: 1, value: 6}, func(v int) Fiber[int] {
		return Ready(v * 7)
	})
	v, ok := Poll[int](f, 10)
	if !ok || v != 42 {
		t.Errorf("AndThen = %d, %v", v, ok)
	}
}

func TestRaceReportsWinner(t *testing.T) {
	f := Race[int](&countdown{n: 3, value: 1}, &countdown{n: 1, value: 2}, &countdown{n: 1, value: 3})
	w, ok := Poll[Won[int]](f, 10)
	if !ok {
		t.Fatal("race never finished")
	}
	if w.Index != 1 || w.Value != 2 {
		t.Errorf("winner = %+v, want index 1 (tie broken low)", w)
	}
}

func TestTryShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	f := Try[int, int](Ready(api.Fail[int](boom)), func(int) Fiber[api.Result[int]] {
		ran = true
		return Ready(api.Ok(1))
	})
	r, ok := Poll[api.Result[int]](f, 5)
	if !ok || !errors.Is(r.Err, boom) || ran {
		t.Errorf("Try = %+v ran=%v", r, ran)
	}

	g := Try[int, int](Ready(api.Ok(2)), func(v int) Fiber[api.Result[int]] {
		return Ready(api.Ok(v + 1))
	})
	if r, _ := Poll[api.Result[int]](g, 5); !r.IsOk() || r.Value != 3 {
		t.Errorf("Try success = %+v", r)
	}
}

func TestRepeatAndDiscard(t *testing.T) {
	built := 0
	f := Discard[int](Repeat(3, func(i int) Fiber[int] {
		built++
		return &countdown{n: i, value: i}
	}))
	if _, ok := Poll[Unit](f, 10); !ok {
		t.Fatal("repeat did not finish")
	}
	if built != 3 {
		t.Errorf("built %d fibers, want 3", built)
	}
}

func TestFuncFiber(t *testing.T) {
	calls := 0
	f := Func(func(cx *Context) (int, bool) {
		calls++
		if calls < 3 {
			cx.Yield()
			return 0, false
		}
		return calls, true
	})
	if v, ok := Poll[int](f, 2); ok {
		t.Errorf("finished early with %d", v)
	}
	if v, ok := Poll[int](f, 2); !ok || v != 3 {
		t.Errorf("Func = %d,%v", v, ok)
	}
}

// held is a countdown that records whether it was dropped.
type held struct {
	countdown
	dropped int
}

func (h *held) Drop() { h.dropped++ }

func TestCompositesForwardDrop(t *testing.T) {
	leaf := func() *held { return &held{countdown: countdown{n: 100}} }
	cx := NewContext(WakeHandle{})

	a, b := leaf(), leaf()
	seq := Then[int, int](a, b)
	seq.Resume(cx)
	seq.Drop()
	if a.dropped != 1 || b.dropped != 0 {
		t.Errorf("Then: first dropped %d, second %d", a.dropped, b.dropped)
	}

	m := leaf()
	disc := Discard[int](m)
	disc.Resume(cx)
	disc.Drop()
	if m.dropped != 1 {
		t.Errorf("Discard: dropped %d", m.dropped)
	}

	first := &held{countdown: countdown{value: 3}}
	next := leaf()
	bind := AndThen[int, int](first, func(int) Fiber[int] { return next })
	bind.Resume(cx)
	bind.Drop()
	if first.dropped != 0 || next.dropped != 1 {
		t.Errorf("AndThen: first dropped %d, next %d", first.dropped, next.dropped)
	}

	r := leaf()
	rep := Repeat[int](2, func(int) Fiber[int] { return r })
	rep.Resume(cx)
	rep.Drop()
	if r.dropped != 1 {
		t.Errorf("Repeat: dropped %d", r.dropped)
	}
}

func TestRaceDropsLosers(t *testing.T) {
	slow, fast, slower := &held{countdown: countdown{n: 5}}, &held{countdown: countdown{n: 1, value: 9}}, &held{countdown: countdown{n: 8}}
	race := Race[int](slow, fast, slower)
	w, ok := Poll[Won[int]](race, 5)
	if !ok || w.Index != 1 || w.Value != 9 {
		t.Fatalf("race = %+v, %v", w, ok)
	}
	if slow.dropped != 1 || slower.dropped != 1 || fast.dropped != 0 {
		t.Errorf("dropped slow=%d fast=%d slower=%d", slow.dropped, fast.dropped, slower.dropped)
	}
}
