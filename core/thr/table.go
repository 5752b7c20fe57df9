// File: core/thr/table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The thread table is built once from the board description: one thread per
// interrupt line, never more.

package thr

import (
	"fmt"
	"sort"

	"github.com/momentics/hioload-rt/api"
)

// Table indexes threads by line and name. It is read-only once built.
type Table struct {
	byLine map[int]*Thread
	byName map[string]*Thread
	order  []*Thread // by descending priority, then line
}

// NewTable builds every thread in cfgs. Lines and names must be unique.
func NewTable(cfgs ...Config) (*Table, error) {
	tb := &Table{
		byLine: make(map[int]*Thread, len(cfgs)),
		byName: make(map[string]*Thread, len(cfgs)),
	}
	for _, c := range cfgs {
		if c.Name == "" {
			return nil, fmt.Errorf("thr: thread on line %d has no name: %w", c.Line, api.ErrInvalidArgument)
		}
		if _, dup := tb.byLine[c.Line]; dup {
			return nil, fmt.Errorf("thr %s: line %d already bound: %w", c.Name, c.Line, api.ErrInvalidArgument)
		}
		if _, dup := tb.byName[c.Name]; dup {
			return nil, fmt.Errorf("thr %s: name already used: %w", c.Name, api.ErrInvalidArgument)
		}
		t, err := New(c)
		if err != nil {
			return nil, err
		}
		tb.byLine[c.Line] = t
		tb.byName[c.Name] = t
		tb.order = append(tb.order, t)
	}
	sort.SliceStable(tb.order, func(i, j int) bool {
		a, b := tb.order[i], tb.order[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		return a.line < b.line
	})
	return tb, nil
}

// Line returns the thread bound to line.
func (tb *Table) Line(line int) (*Thread, error) {
	t, ok := tb.byLine[line]
	if !ok {
		return nil, fmt.Errorf("thr: line %d: %w", line, api.ErrNotFound)
	}
	return t, nil
}

// Named returns the thread called name.
func (tb *Table) Named(name string) (*Thread, error) {
	t, ok := tb.byName[name]
	if !ok {
		return nil, fmt.Errorf("thr: thread %q: %w", name, api.ErrNotFound)
	}
	return t, nil
}

// Vector returns the interrupt entry point bound to line.
func (tb *Table) Vector(line int) (func(), error) {
	t, err := tb.Line(line)
	if err != nil {
		return nil, err
	}
	return t.Activate, nil
}

// Threads returns every thread, highest priority first.
func (tb *Table) Threads() []*Thread {
	return append([]*Thread(nil), tb.order...)
}
