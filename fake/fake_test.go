package fake

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-rt/api"
)

func TestAllocatorTracksBlocks(t *testing.T) {
	a := NewAllocator()
	a.SetLimit(16)
	if _, err := a.Acquire(32, 1); !errors.Is(err, api.ErrOutOfMemory) {
		t.Errorf("over limit: %v", err)
	}
	b, err := a.Acquire(16, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Release(b, 8, 4); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("wrong size release: %v", err)
	}
	if err := a.Release(b, 16, 4); err != nil {
		t.Fatal(err)
	}
	if err := a.Release(b, 16, 4); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("double release: %v", err)
	}
}

func TestTargetRecords(t *testing.T) {
	var tg Target
	tg.Post(1, 2)
	tg.Post(1, 2)
	if got := tg.Posts(); len(got) != 2 || got[0] != (Post{1, 2}) {
		t.Errorf("posts = %v", got)
	}
	tg.Reset()
	if len(tg.Posts()) != 0 {
		t.Error("Reset kept posts")
	}
}
