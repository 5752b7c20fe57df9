// File: core/thr/local.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package thr

// SetLocal stores v in the thread-local slot. Fibers of one thread share it.
func (t *Thread) SetLocal(v any) {
	if v == nil {
		t.local.Store(nil)
		return
	}
	t.local.Store(&v)
}

// Local returns the thread-local value, or nil.
func (t *Thread) Local() any {
	if p := t.local.Load(); p != nil {
		return *p
	}
	return nil
}

// LocalAs returns the thread-local value as T.
func LocalAs[T any](t *Thread) (T, bool) {
	v, ok := t.Local().(T)
	return v, ok
}
