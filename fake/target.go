// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import "sync"

// Post is one recorded wake.
type Post struct {
	Slot uint16
	Gen  uint32
}

// Target records wakes instead of scheduling anything. It satisfies
// fiber.Target.
type Target struct {
	mu    sync.Mutex
	posts []Post
}

// Post records a wake for slot at generation gen.
func (t *Target) Post(slot uint16, gen uint32) {
	t.mu.Lock()
	t.posts = append(t.posts, Post{Slot: slot, Gen: gen})
	t.mu.Unlock()
}

// Posts returns a copy of the recorded wakes.
func (t *Target) Posts() []Post {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Post(nil), t.posts...)
}

// Reset forgets recorded wakes.
func (t *Target) Reset() {
	t.mu.Lock()
	t.posts = nil
	t.mu.Unlock()
}
