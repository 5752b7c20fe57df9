package token

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/internal/interleave"
)

func newTestRegistry(t *testing.T, ids ...string) (*Registry, *control.Counters) {
	t.Helper()
	c := &control.Counters{}
	r, err := NewRegistry(c, ids...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r, c
}

func TestGPIOADoubleClaim(t *testing.T) {
	r, c := newTestRegistry(t, "GPIOA", "GPIOB")

	tok, err := r.ClaimUnique("GPIOA")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !tok.IsUnique() || tok.ID() != "GPIOA" {
		t.Errorf("unexpected token %v", tok)
	}
	if _, err := r.ClaimUnique("GPIOA"); !errors.Is(err, api.ErrAlreadyTaken) {
		t.Errorf("second claim: got %v, want ErrAlreadyTaken", err)
	}
	if api.CodeOf(func() error { _, err := r.ClaimUnique("GPIOA"); return err }()) != api.ErrCodeAlreadyTaken {
		t.Error("CodeOf must classify the wrapped sentinel")
	}
	if _, err := r.ClaimUnique("GPIOB"); err != nil {
		t.Errorf("other identity blocked: %v", err)
	}
	if got := c.ClaimConflicts.Load(); got != 2 {
		t.Errorf("ClaimConflicts = %d, want 2", got)
	}
}

func TestSharedClaimsDuplicate(t *testing.T) {
	r, c := newTestRegistry(t, "RCC")
	for i := 0; i < 3; i++ {
		s, err := r.ClaimShared("RCC")
		if err != nil || s.IsUnique() || s.Exclusive() {
			t.Fatalf("ClaimShared = %v, %v", s, err)
		}
	}
	if !r.Taken("RCC") || !r.SharedNow("RCC") {
		t.Error("shared claims must mark the identity")
	}
	if _, err := r.ClaimUnique("RCC"); !errors.Is(err, api.ErrAlreadyTaken) {
		t.Errorf("ClaimUnique over shared holders: %v", err)
	}
	if got := c.ClaimConflicts.Load(); got != 1 {
		t.Errorf("ClaimConflicts = %d, want 1", got)
	}
}

func TestShareConsumesUnique(t *testing.T) {
	r, c := newTestRegistry(t, "RCC")
	u, _ := r.ClaimUnique("RCC")
	if !u.Exclusive() {
		t.Fatal("fresh unique token must be exclusive")
	}
	if _, err := r.ClaimShared("RCC"); !errors.Is(err, api.ErrAlreadyTaken) {
		t.Errorf("ClaimShared with unique live: %v", err)
	}
	keep := u
	d := u.Share()
	if d.IsUnique() || d.ID() != "RCC" {
		t.Errorf("Share produced %v", d)
	}
	if u.Exclusive() || keep.Exclusive() {
		t.Error("copies of a shared-out unique token must lose exclusivity")
	}
	if !r.Taken("RCC") || !r.SharedNow("RCC") {
		t.Error("conversion must keep the identity claimed")
	}
	if _, err := r.ClaimShared("RCC"); err != nil {
		t.Errorf("ClaimShared after Share: %v", err)
	}
	if _, err := r.ClaimUnique("RCC"); !errors.Is(err, api.ErrAlreadyTaken) {
		t.Errorf("claim after demotion: %v", err)
	}
	if got := c.ClaimConflicts.Load(); got != 2 {
		t.Errorf("ClaimConflicts = %d, want 2", got)
	}
}

func TestUndeclaredIdentity(t *testing.T) {
	r, _ := newTestRegistry(t, "USART1")
	if _, err := r.ClaimUnique("USART2"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("ClaimUnique: %v", err)
	}
	if _, err := r.ClaimShared("USART2"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("ClaimShared: %v", err)
	}
	if r.Declared("USART2") || !r.Declared("USART1") {
		t.Error("Declared disagrees with construction")
	}
}

func TestNewRegistryRejectsBadIDs(t *testing.T) {
	if _, err := NewRegistry(nil, "A", "A"); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("duplicate: %v", err)
	}
	if _, err := NewRegistry(nil, ""); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("empty: %v", err)
	}
}

func TestRacingUniqueClaims(t *testing.T) {
	r, _ := newTestRegistry(t, "TIM2")
	const racers = 32
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := r.ClaimUnique("TIM2"); err == nil {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	if winners.Load() != 1 {
		t.Errorf("%d racers won, want exactly 1", winners.Load())
	}
}

func TestClaimUniqueEveryInterleaving(t *testing.T) {
	var (
		r       *Registry
		winners int
	)
	claimStep := func() {
		if _, err := r.ClaimUnique("DMA1"); err == nil {
			winners++
		}
	}
	res := interleave.Explore(interleave.Scenario{
		Setup: func() {
			r, _ = NewRegistry(&control.Counters{}, "DMA1")
			winners = 0
		},
		Contexts: [][]interleave.Step{
			{claimStep, claimStep},
			{claimStep},
			{claimStep},
		},
		Check: func() error {
			if winners != 1 {
				return errors.New("claim flag did not exclude")
			}
			return nil
		},
	}, 0)
	if res.Err != nil {
		t.Fatalf("schedule %v: %v", res.Failing, res.Err)
	}
	if res.Schedules != 12 {
		t.Errorf("explored %d schedules, want 12", res.Schedules)
	}
}

func TestInstallOnce(t *testing.T) {
	r1, _ := newTestRegistry(t, "X")
	r2, _ := newTestRegistry(t, "X")
	first := Install(r1)
	if Install(r2) {
		t.Error("second Install must fail")
	}
	if first && Default() != r1 {
		t.Error("Default must return the installed registry")
	}
	if Default() == nil {
		t.Error("Default nil after Install")
	}
}
