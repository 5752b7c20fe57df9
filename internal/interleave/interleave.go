// File: internal/interleave/interleave.go
// Package interleave enumerates every interleaving of a small concurrent
// scenario.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A scenario is a list of execution contexts, each an ordered list of atomic
// steps. Explore runs the scenario once per distinct merge of those lists,
// resetting state with Setup before each run and validating with Check after
// it. Steps model the points at which an interrupt may preempt a context, so
// a step must be a single indivisible action of the code under test.

package interleave

import (
	"fmt"

	"github.com/eapache/queue"
)

// Step is one indivisible action of a context.
type Step func()

// Scenario describes the contexts to interleave.
type Scenario struct {
	Setup    func()
	Contexts [][]Step
	Check    func() error
}

// Result summarizes an exploration.
type Result struct {
	Schedules int   // schedules executed
	Failing   []int // context index per step of the first failing schedule
	Err       error // Check error of the failing schedule
	Truncated bool  // limit reached before every schedule ran
}

// Explore runs every interleaving in breadth-first order of schedule
// prefixes, stopping at the first failing schedule or after limit schedules
// when limit is positive.
func Explore(s Scenario, limit int) Result {
	total := 0
	for _, c := range s.Contexts {
		total += len(c)
	}

	var res Result
	frontier := queue.New()
	frontier.Add([]int{})
	for frontier.Length() > 0 {
		prefix := frontier.Remove().([]int)
		if len(prefix) == total {
			if limit > 0 && res.Schedules >= limit {
				res.Truncated = true
				return res
			}
			res.Schedules++
			if err := run(s, prefix); err != nil {
				res.Failing = prefix
				res.Err = err
				return res
			}
			continue
		}
		used := make([]int, len(s.Contexts))
		for _, c := range prefix {
			used[c]++
		}
		for c := range s.Contexts {
			if used[c] < len(s.Contexts[c]) {
				next := make([]int, len(prefix)+1)
				copy(next, prefix)
				next[len(prefix)] = c
				frontier.Add(next)
			}
		}
	}
	return res
}

func run(s Scenario, schedule []int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interleave: step panicked: %v", r)
		}
	}()
	if s.Setup != nil {
		s.Setup()
	}
	pos := make([]int, len(s.Contexts))
	for _, c := range schedule {
		s.Contexts[c][pos[c]]()
		pos[c]++
	}
	if s.Check != nil {
		return s.Check()
	}
	return nil
}

// Count returns the number of interleavings of contexts with the given step
// counts (the multinomial coefficient).
func Count(lengths ...int) int {
	n, out := 0, 1
	for _, l := range lengths {
		for i := 1; i <= l; i++ {
			n++
			out = out * n / i
		}
	}
	return out
}
