package control

import (
	"bytes"
	"sync"
	"testing"
)

func TestCountersSnapshot(t *testing.T) {
	var c Counters
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.FiberResumes.Add(1)
			}
		}()
	}
	wg.Wait()
	c.QueueFull.Add(3)

	s := c.Snapshot()
	if s.FiberResumes != 4000 {
		t.Errorf("FiberResumes = %d, want 4000", s.FiberResumes)
	}
	m := s.Map()
	if m["queue_full"] != uint64(3) {
		t.Errorf("map queue_full = %v", m["queue_full"])
	}
	if len(m) != 17 {
		t.Errorf("map has %d entries", len(m))
	}
}

func TestOrFallsBackToDefault(t *testing.T) {
	if Or(nil) != Default {
		t.Error("Or(nil) must return Default")
	}
	c := &Counters{}
	if Or(c) != c {
		t.Error("Or(c) must return c")
	}
}

func TestSnapshotCBORCanonical(t *testing.T) {
	var c Counters
	c.Claims.Add(2)
	c.StaleWakes.Add(7)
	s := c.Snapshot()

	a, err := s.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR: %v", err)
	}
	b, _ := s.MarshalCBOR()
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding is not deterministic")
	}
	back, err := UnmarshalSnapshot(a)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if back != s {
		t.Errorf("decoded %+v, want %+v", back, s)
	}
	if _, err := UnmarshalSnapshot([]byte{0xff}); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestReportCarriesProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("thread.main.depth", func() any { return 3 })
	RegisterPlatformProbes(dp)

	dp.RegisterProbe("broken", func() any { panic("boom") })
	dp.RegisterProbe("gone", func() any { return 1 })
	dp.RegisterProbe("gone", nil)

	state := dp.DumpState(nil, "")
	if state["broken"] != "probe panic: boom" {
		t.Errorf("panicking probe = %v", state["broken"])
	}
	if _, ok := state["gone"]; ok {
		t.Error("nil registration did not remove the probe")
	}
	if state["thread.main.depth"] != 3 {
		t.Errorf("probe value = %v", state["thread.main.depth"])
	}
	if _, ok := state["platform.cpus"]; !ok {
		t.Error("platform probe missing")
	}
	merged := dp.DumpState(map[string]any{"claims": uint64(1)}, "debug.")
	if merged["claims"] != uint64(1) || merged["debug.thread.main.depth"] != 3 {
		t.Errorf("merged dump = %v", merged)
	}
	names := dp.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names not sorted: %v", names)
		}
	}

	data, err := MarshalReport(Report{Counters: Snapshot{Claims: 1}, Probes: map[string]any{"x": "y"}})
	if err != nil {
		t.Fatalf("MarshalReport: %v", err)
	}
	r, err := UnmarshalReport(data)
	if err != nil {
		t.Fatalf("UnmarshalReport: %v", err)
	}
	if r.Counters.Claims != 1 || r.Probes["x"] != "y" {
		t.Errorf("report round trip lost data: %+v", r)
	}
}
